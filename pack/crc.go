package pack

import "hash/crc32"

// countingCRCWriter is an io.Writer adapter around crc32.NewIEEE so it can
// sit in an io.MultiWriter alongside the offset-tracking pack writer.
type countingCRCWriter struct {
	h interface {
		Write([]byte) (int, error)
		Sum32() uint32
	}
}

func newCountingCRCWriter() *countingCRCWriter {
	return &countingCRCWriter{h: crc32.NewIEEE()}
}

func (c *countingCRCWriter) Write(p []byte) (int, error) {
	return c.h.Write(p)
}

func (c *countingCRCWriter) Sum32() uint32 {
	return c.h.Sum32()
}

package object

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signature is a parsed "name <email> seconds tz" identity line, as used
// by the author/committer/tagger headers.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// String formats the signature back into Git's canonical line form.
func (s Signature) String() string {
	_, offset := s.When.Zone()
	sign := byte('+')
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	hh := offset / 3600
	mm := (offset % 3600) / 60
	return fmt.Sprintf("%s <%s> %d %c%02d%02d", s.Name, s.Email, s.When.Unix(), sign, hh, mm)
}

// ParseSignature parses a raw author/committer/tagger header value.
func ParseSignature(raw string) (Signature, error) {
	lt := strings.LastIndexByte(raw, '<')
	gt := strings.LastIndexByte(raw, '>')
	if lt < 0 || gt < 0 || gt < lt {
		return Signature{}, fmt.Errorf("object: malformed signature %q", raw)
	}

	name := strings.TrimSpace(raw[:lt])
	email := raw[lt+1 : gt]
	rest := strings.TrimSpace(raw[gt+1:])

	fields := strings.Fields(rest)
	if len(fields) != 2 {
		return Signature{}, fmt.Errorf("object: malformed signature timestamp %q", rest)
	}

	sec, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("object: malformed signature timestamp: %w", err)
	}

	tz, err := parseTimezone(fields[1])
	if err != nil {
		return Signature{}, err
	}

	return Signature{
		Name:  name,
		Email: email,
		When:  time.Unix(sec, 0).In(tz),
	}, nil
}

func parseTimezone(s string) (*time.Location, error) {
	if len(s) != 5 || (s[0] != '+' && s[0] != '-') {
		return nil, fmt.Errorf("object: malformed timezone %q", s)
	}
	hh, err := strconv.Atoi(s[1:3])
	if err != nil {
		return nil, fmt.Errorf("object: malformed timezone %q: %w", s, err)
	}
	mm, err := strconv.Atoi(s[3:5])
	if err != nil {
		return nil, fmt.Errorf("object: malformed timezone %q: %w", s, err)
	}
	offset := hh*3600 + mm*60
	if s[0] == '-' {
		offset = -offset
	}
	return time.FixedZone(s[:1]+s[1:3]+s[3:5], offset), nil
}

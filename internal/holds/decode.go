// Package holds decodes the per-climb hold encoding stored in the Kilter
// Board app database and classifies each hold by the role it plays.
//
// A climb's "frames" column is a concatenation of fixed-width records, each
// introduced by a one-byte tag:
//
//	p<placement:4><sep:1><role:2>   placement record, 8 bytes
//	x<payload:4>                    opaque record, 5 bytes
//
// Quote and comma characters are storage artifacts and are removed before
// the records are tokenized.
package holds

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	tagPlacement = 'p'
	tagOpaque    = 'x'

	placementRecordLen = 8
	opaqueRecordLen    = 5
)

// recordLen maps a tag byte to the full length of its record, tag included.
var recordLen = map[byte]int{
	tagPlacement: placementRecordLen,
	tagOpaque:    opaqueRecordLen,
}

// Use is one hold referenced by a climb: the layout placement it sits in and
// the raw two-character role code.
type Use struct {
	PlacementID int
	RoleCode    string
}

// DecodeError reports a malformed hold encoding. Offset is relative to the
// cleaned string (quotes and commas removed).
type DecodeError struct {
	Offset int
	Tag    byte
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode holds: %s at offset %d (tag %q)", e.Reason, e.Offset, e.Tag)
}

// Clean removes the quote and comma artifacts from a raw encoding.
func Clean(raw string) string {
	return strings.NewReplacer(`"`, "", ",", "").Replace(raw)
}

// Decode parses a raw hold encoding into the ordered list of placement uses.
// Opaque x records are consumed and dropped. The result preserves input
// order and is not deduplicated.
func Decode(raw string) ([]Use, error) {
	s := Clean(raw)
	uses := make([]Use, 0, len(s)/placementRecordLen)

	for cursor := 0; cursor < len(s); {
		tag := s[cursor]
		n, ok := recordLen[tag]
		if !ok {
			return nil, &DecodeError{Offset: cursor, Tag: tag, Reason: "unrecognized record tag"}
		}
		if cursor+n > len(s) {
			return nil, &DecodeError{
				Offset: cursor,
				Tag:    tag,
				Reason: fmt.Sprintf("truncated record: need %d bytes, have %d", n, len(s)-cursor),
			}
		}

		rec := s[cursor : cursor+n]
		if tag == tagPlacement {
			id, err := strconv.Atoi(rec[1:5])
			if err != nil || id < 0 {
				return nil, &DecodeError{Offset: cursor, Tag: tag, Reason: fmt.Sprintf("invalid placement id %q", rec[1:5])}
			}
			uses = append(uses, Use{PlacementID: id, RoleCode: rec[6:8]})
		}
		cursor += n
	}

	return uses, nil
}

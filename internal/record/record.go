// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

// Package record defines the canonical decision record stored as
// encrypted metadata alongside its embedding. Once inserted, a record is
// immutable; deletions are allowed but not updates.
package record

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	runeerr "github.com/rune-dev/rune/pkg/errors"
)

// Kind classifies what was captured.
type Kind string

const (
	KindDecision  Kind = "decision"
	KindRationale Kind = "rationale"
	KindPolicy    Kind = "policy"
	KindLesson    Kind = "lesson"
	KindInsight   Kind = "insight"
)

// Certainty qualifies the evidence behind a record. It is fixed at
// capture time; recall must preserve it and the synthesizer must not
// upgrade it.
type Certainty string

const (
	CertaintySupported          Certainty = "supported"
	CertaintyPartiallySupported Certainty = "partially_supported"
	CertaintyUnknown            Certainty = "unknown"
)

const (
	// MaxTitleLen bounds the short summary.
	MaxTitleLen = 140
	// MaxBodyLen bounds the full extracted context (4 KiB).
	MaxBodyLen = 4096
)

// Record is the captured decision entity.
type Record struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Kind         Kind      `json:"kind"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	Participants []string  `json:"participants,omitempty"`
	Sources      []string  `json:"sources,omitempty"`
	Certainty    Certainty `json:"certainty"`
	Tags         []string  `json:"tags,omitempty"`
}

// ValidKind reports membership in the closed kind set.
func ValidKind(k Kind) bool {
	switch k {
	case KindDecision, KindRationale, KindPolicy, KindLesson, KindInsight:
		return true
	}
	return false
}

// ValidCertainty reports membership in the closed certainty set.
func ValidCertainty(c Certainty) bool {
	switch c {
	case CertaintySupported, CertaintyPartiallySupported, CertaintyUnknown:
		return true
	}
	return false
}

// NewID generates a stable record identifier of the form
// dec_<utc-date>_<kind>_<rand>.
func NewID(t time.Time, kind Kind) string {
	rand := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("dec_%s_%s_%s", t.UTC().Format("2006-01-02"), kind, rand)
}

// New builds a record with a fresh id and timestamp, clamped to the
// field limits.
func New(kind Kind, title, body string, certainty Certainty) Record {
	now := time.Now().UTC()
	r := Record{
		ID:        NewID(now, kind),
		Timestamp: now,
		Kind:      kind,
		Title:     title,
		Body:      body,
		Certainty: certainty,
	}
	r.Clamp()
	return r
}

// Minimal synthesizes the degraded record used when extraction fails
// completely: the capture pipeline never drops text it already judged
// significant.
func Minimal(text string) Record {
	title := text
	if len(title) > 120 {
		title = title[:120]
	}
	return New(KindInsight, title, text, CertaintyUnknown)
}

// Clamp enforces the title and body limits in place.
func (r *Record) Clamp() {
	if len(r.Title) > MaxTitleLen {
		r.Title = r.Title[:MaxTitleLen]
	}
	if len(r.Body) > MaxBodyLen {
		r.Body = r.Body[:MaxBodyLen]
	}
}

// Validate checks the record invariants.
func (r *Record) Validate() error {
	if r.ID == "" {
		return runeerr.New(runeerr.CodeServerRequestInvalid, "record: missing id")
	}
	if !ValidKind(r.Kind) {
		return runeerr.Errorf(runeerr.CodeServerRequestInvalid, "record: invalid kind %q", r.Kind)
	}
	if !ValidCertainty(r.Certainty) {
		return runeerr.Errorf(runeerr.CodeServerRequestInvalid, "record: invalid certainty %q", r.Certainty)
	}
	if len(r.Title) > MaxTitleLen {
		return runeerr.Errorf(runeerr.CodeServerRequestInvalid, "record: title exceeds %d chars", MaxTitleLen)
	}
	if len(r.Body) > MaxBodyLen {
		return runeerr.Errorf(runeerr.CodeServerRequestInvalid, "record: body exceeds %d bytes", MaxBodyLen)
	}
	return nil
}

// Marshal encodes the record as the stored metadata document.
func (r *Record) Marshal() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, runeerr.Wrapf(err, runeerr.CodeServerInternalFailure, "encoding record %s", r.ID)
	}
	return data, nil
}

// Unmarshal decodes a stored metadata document. Unknown certainty values
// degrade to unknown rather than failing recall.
func Unmarshal(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, runeerr.Wrapf(err, runeerr.CodeServerInternalFailure, "decoding record metadata")
	}
	if !ValidCertainty(r.Certainty) {
		r.Certainty = CertaintyUnknown
	}
	return r, nil
}

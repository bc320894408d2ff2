package model

import (
	"errors"
	"testing"
)

// TestAnnotationValidate tests structural validation of annotation records.
func TestAnnotationValidate(t *testing.T) {
	t.Parallel()

	valid := Annotation{
		StartPos:        0,
		EndPos:          4,
		TargetText:      "What",
		ContributorUUID: "c1",
		TopicName:       "T1",
	}

	tests := []struct {
		name    string
		mutate  func(*Annotation)
		wantErr error
	}{
		{
			name:    "valid annotation",
			mutate:  func(*Annotation) {},
			wantErr: nil,
		},
		{
			name:    "zero-length range is valid",
			mutate:  func(a *Annotation) { a.EndPos = a.StartPos },
			wantErr: nil,
		},
		{
			name:    "negative start position",
			mutate:  func(a *Annotation) { a.StartPos = -1 },
			wantErr: ErrNegativePosition,
		},
		{
			name:    "inverted range",
			mutate:  func(a *Annotation) { a.StartPos = 5; a.EndPos = 3 },
			wantErr: ErrInvalidRange,
		},
		{
			name:    "missing contributor",
			mutate:  func(a *Annotation) { a.ContributorUUID = "" },
			wantErr: ErrMissingContributor,
		},
		{
			name:    "missing topic",
			mutate:  func(a *Annotation) { a.TopicName = "" },
			wantErr: ErrMissingTopic,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := valid
			tt.mutate(&a)

			err := a.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestAnnotationLen tests position counting.
func TestAnnotationLen(t *testing.T) {
	t.Parallel()

	a := Annotation{StartPos: 3, EndPos: 10}
	if got := a.Len(); got != 7 {
		t.Errorf("Len() = %d, want 7", got)
	}

	r := Range{StartPos: 3, EndPos: 10}
	if got := r.Len(); got != 7 {
		t.Errorf("Range.Len() = %d, want 7", got)
	}
}

// TestValidateTaskUUID tests task identifier validation.
func TestValidateTaskUUID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "canonical uuid", input: "4fa1c7de-9c6b-4a3f-8f64-2f0d7f9a1b23", wantErr: false},
		{name: "empty string", input: "", wantErr: true},
		{name: "not a uuid", input: "task-123", wantErr: true},
		{name: "truncated uuid", input: "4fa1c7de-9c6b-4a3f", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateTaskUUID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTaskUUID(%q) = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

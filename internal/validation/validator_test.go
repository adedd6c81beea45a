// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package validation

import (
	"strings"
	"testing"
)

type discussionRequest struct {
	MediaType string `validate:"required,oneof=movie tv"`
	MediaID   int64  `validate:"required,gt=0"`
	Title     string `validate:"required,min=1,max=200"`
	Body      string `validate:"max=10000"`
}

func TestValidateStructValid(t *testing.T) {
	req := discussionRequest{
		MediaType: "movie",
		MediaID:   603,
		Title:     "Rewatch thread",
		Body:      "Who else caught the deja vu scene?",
	}

	if err := ValidateStruct(&req); err != nil {
		t.Fatalf("expected valid struct, got: %v", err)
	}
}

func TestValidateStructSingleError(t *testing.T) {
	req := discussionRequest{
		MediaType: "movie",
		MediaID:   603,
		Title:     "", // missing
	}

	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("expected validation error, got nil")
	}

	if len(verr.Errors()) != 1 {
		t.Fatalf("expected 1 error, got %d: %v", len(verr.Errors()), verr)
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("expected code VALIDATION_ERROR, got %q", apiErr.Code)
	}
	if apiErr.Message != "Title is required" {
		t.Errorf("unexpected message: %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "Title" {
		t.Errorf("expected field detail Title, got %v", apiErr.Details["field"])
	}
}

func TestValidateStructMultipleErrors(t *testing.T) {
	req := discussionRequest{
		MediaType: "podcast", // not in oneof
		MediaID:   0,         // required
		Title:     strings.Repeat("x", 201),
	}

	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("expected validation error, got nil")
	}

	if len(verr.Errors()) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(verr.Errors()), verr)
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("expected code VALIDATION_ERROR, got %q", apiErr.Code)
	}

	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok {
		t.Fatalf("expected fields detail, got %T", apiErr.Details["fields"])
	}
	if len(fields) != 3 {
		t.Errorf("expected 3 field details, got %d", len(fields))
	}

	if !strings.Contains(apiErr.Message, "MediaType must be one of: movie tv") {
		t.Errorf("missing oneof message in %q", apiErr.Message)
	}
	if !strings.Contains(apiErr.Message, "Title must be at most 200 characters") {
		t.Errorf("missing max message in %q", apiErr.Message)
	}
}

func TestTranslateErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		payload interface{}
		want    string
	}{
		{
			name: "gte numeric",
			payload: &struct {
				Position int `validate:"gte=0"`
			}{Position: -5},
			want: "Position must be greater than or equal to 0",
		},
		{
			name: "min string",
			payload: &struct {
				Body string `validate:"min=3"`
			}{Body: "a"},
			want: "Body must be at least 3 characters",
		},
		{
			name: "uuid",
			payload: &struct {
				ID string `validate:"uuid"`
			}{ID: "not-a-uuid"},
			want: "ID must be a valid UUID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(tt.payload)
			if verr == nil {
				t.Fatal("expected validation error, got nil")
			}
			if got := verr.Errors()[0].Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetValidatorSingleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()
	if v1 != v2 {
		t.Error("expected GetValidator to return the same instance")
	}
}

package validator_test

import (
	"lodge/shared/validator"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"
)

type stayRequest struct {
	CheckInDate    string `json:"checkInDate"    validate:"required,staydate"`
	CheckOutDate   string `json:"checkOutDate"   validate:"required,staydate"`
	NumberOfGuests int    `json:"numberOfGuests" validate:"gte=1,lte=20"`
	PaymentMethod  string `json:"paymentMethod"  validate:"oneof=online bank_deposit"`
}

type slipRequest struct {
	File *multipart.FileHeader `validate:"required,mimetypes=image/png image/jpeg application/pdf,maxfilesize=5"`
}

func validStay() stayRequest {
	return stayRequest{
		CheckInDate:    "2024-06-01",
		CheckOutDate:   "2024-06-05T00:00:00Z",
		NumberOfGuests: 2,
		PaymentMethod:  "online",
	}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(r *stayRequest)
		expectError bool
	}{
		{
			name:   "valid struct",
			mutate: func(_ *stayRequest) {},
		},
		{
			name:        "missing check in",
			mutate:      func(r *stayRequest) { r.CheckInDate = "" },
			expectError: true,
		},
		{
			name:        "malformed check out",
			mutate:      func(r *stayRequest) { r.CheckOutDate = "05/06/2024" },
			expectError: true,
		},
		{
			name:        "guests out of range",
			mutate:      func(r *stayRequest) { r.NumberOfGuests = 0 },
			expectError: true,
		},
		{
			name:        "invalid payment method",
			mutate:      func(r *stayRequest) { r.PaymentMethod = "cash" },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := validStay()
			tt.mutate(&data)

			err := validator.ValidateStruct(&data)

			if tt.expectError && err == nil {
				t.Error("expected validation error, got nil")
			}

			if !tt.expectError && err != nil {
				t.Errorf("expected no validation error, got: %v", err)
			}
		})
	}
}

func TestValidateVar(t *testing.T) {
	tests := []struct {
		name        string
		field       any
		tag         string
		expectError bool
	}{
		{name: "valid required string", field: "BK-1718000000000", tag: "required"},
		{name: "empty required string", field: "", tag: "required", expectError: true},
		{name: "valid oneof", field: "paid", tag: "oneof=pending paid failed refunded"},
		{name: "invalid oneof", field: "settled", tag: "oneof=pending paid failed refunded", expectError: true},
		{name: "valid stay date", field: "2024-06-01", tag: "staydate"},
		{name: "invalid stay date", field: "tomorrow", tag: "staydate", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateVar(tt.field, tt.tag)

			if tt.expectError && err == nil {
				t.Error("expected validation error, got nil")
			}

			if !tt.expectError && err != nil {
				t.Errorf("expected no validation error, got: %v", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		jsonBody    string
		expectError bool
	}{
		{
			name:     "valid JSON",
			jsonBody: `{"checkInDate":"2024-06-01","checkOutDate":"2024-06-03","numberOfGuests":2,"paymentMethod":"bank_deposit"}`,
		},
		{
			name:        "invalid field",
			jsonBody:    `{"checkInDate":"2024-06-01","checkOutDate":"2024-06-03","numberOfGuests":2,"paymentMethod":"cash"}`,
			expectError: true,
		},
		{
			name:        "malformed JSON",
			jsonBody:    `{"checkInDate":}`,
			expectError: true,
		},
		{
			name:        "empty JSON",
			jsonBody:    `{}`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var data stayRequest
			err := validator.Validate(strings.NewReader(tt.jsonBody), &data)

			if tt.expectError && err == nil {
				t.Error("expected validation error, got nil")
			}

			if !tt.expectError && err != nil {
				t.Errorf("expected no validation error, got: %v", err)
			}
		})
	}
}

func TestValidationMessages(t *testing.T) {
	data := validStay()
	data.CheckInDate = ""

	err := validator.ValidateStruct(&data)
	if err == nil {
		t.Fatal("expected validation error")
	}

	if err.Error() != "checkInDate is required" {
		t.Errorf("expected json field name in message, got: %s", err.Error())
	}
}

func TestFileValidation(t *testing.T) {
	header := func(contentType string, size int64) *multipart.FileHeader {
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", contentType)

		return &multipart.FileHeader{Filename: "slip", Header: h, Size: size}
	}

	tests := []struct {
		name        string
		file        *multipart.FileHeader
		expectError bool
	}{
		{name: "png within limit", file: header("image/png", 1024)},
		{name: "pdf within limit", file: header("application/pdf", 4<<20)},
		{name: "unsupported type", file: header("text/plain", 10), expectError: true},
		{name: "too large", file: header("image/jpeg", 6<<20), expectError: true},
		{name: "missing", file: nil, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateStruct(&slipRequest{File: tt.file})

			if tt.expectError && err == nil {
				t.Error("expected validation error, got nil")
			}

			if !tt.expectError && err != nil {
				t.Errorf("expected no validation error, got: %v", err)
			}
		})
	}
}

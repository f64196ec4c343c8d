package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil error", err: nil, want: "none"},
		{name: "missing field", err: NewValidationError(ErrMissingField, "Please provide name"), want: "missing_field"},
		{name: "invalid shape", err: NewValidationError(ErrInvalidShape, "items"), want: "invalid_shape"},
		{name: "invalid identifier", err: NewValidationError(ErrInvalidIdentifier, "bad id"), want: "invalid_identifier"},
		{name: "invalid item", err: NewFieldError(ErrInvalidItem, "items[0]", "bad item", nil), want: "invalid_item"},
		{name: "invalid value", err: NewValidationError(ErrInvalidValue, "negative"), want: "invalid_value"},
		{name: "store not found", err: ErrStoreNotFound, want: "not_found"},
		{name: "wrapped product not found", err: fmt.Errorf("get product: %w", ErrProductNotFound), want: "not_found"},
		{name: "forbidden", err: NewValidationError(ErrForbidden, "foreign store"), want: "forbidden"},
		{name: "duplicate", err: NewValidationError(ErrDuplicateEntity, "exists"), want: "duplicate_entity"},
		{name: "no fields", err: NewValidationError(ErrNoFieldsToUpdate, "nothing"), want: "no_fields_to_update"},
		{name: "infrastructure", err: errors.New("connection reset"), want: "persistence"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindLabel(tt.err); got != tt.want {
				t.Errorf("KindLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("create store: %w", NewValidationError(ErrDuplicateEntity, "Store already exists with this name and location"))

	if !errors.Is(err, ErrDuplicateEntity) {
		t.Fatalf("expected errors.Is to match kind")
	}
	ve, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("expected ValidationError in chain")
	}
	if ve.Error() != "Store already exists with this name and location" {
		t.Errorf("unexpected message %q", ve.Error())
	}
}

func TestNotFoundErrorsShareKind(t *testing.T) {
	for _, err := range []error{ErrStoreNotFound, ErrProductNotFound, ErrOrderNotFound} {
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("%v does not wrap ErrNotFound", err)
		}
	}
	if errors.Is(ErrStoreNotFound, ErrProductNotFound) {
		t.Errorf("store and product not found must be distinguishable")
	}
}

func TestIsClientError(t *testing.T) {
	if IsClientError(errors.New("boom")) {
		t.Errorf("infrastructure error treated as client error")
	}
	if IsClientError(nil) {
		t.Errorf("nil treated as client error")
	}
	if !IsClientError(ErrOrderNotFound) {
		t.Errorf("not found must be a client error")
	}
}

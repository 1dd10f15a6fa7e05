package record

import (
	"errors"
	"fmt"
	"iter"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidRecord marks a record or authorship list that breaks the model
// invariants. It always indicates a defect in the producing collaborator.
var ErrInvalidRecord = errors.New("invalid record")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the invariants every record must satisfy.
func Validate(rec Record) error {
	err := validate.Struct(rec)
	if err != nil {
		return fmt.Errorf("%w: %s:%d: %w", ErrInvalidRecord, rec.Filename, rec.Linenum, err)
	}

	return nil
}

// ValidateFinding checks a record produced by a finding source: a valid
// record with a bug type and no author.
func ValidateFinding(rec Record) error {
	err := Validate(rec)
	if err != nil {
		return err
	}

	if err := validate.Var(rec.Bugtype, "required"); err != nil {
		return fmt.Errorf("%w: %s:%d: missing bug type", ErrInvalidRecord, rec.Filename, rec.Linenum)
	}

	if err := validate.Var(rec.Author, "isdefault"); err != nil {
		return fmt.Errorf("%w: %s:%d: finding already attributed to %q", ErrInvalidRecord, rec.Filename, rec.Linenum, rec.Author)
	}

	return nil
}

// ValidateFileAuthors checks an authorship list: named file, empty sentinel,
// and an author for every line after it.
func ValidateFileAuthors(fa FileAuthors) error {
	if err := validate.Var(fa.Filename, "required"); err != nil {
		return fmt.Errorf("%w: authorship without filename", ErrInvalidRecord)
	}

	if err := validate.Var(fa.Authors, "min=1"); err != nil {
		return fmt.Errorf("%w: %s: empty authorship list", ErrInvalidRecord, fa.Filename)
	}

	if err := validate.Var(fa.Authors[0], "isdefault"); err != nil {
		return fmt.Errorf("%w: %s: line 0 has author %q", ErrInvalidRecord, fa.Filename, fa.Authors[0])
	}

	if err := validate.Var(fa.Authors[1:], "dive,required"); err != nil {
		return fmt.Errorf("%w: %s: line without author: %w", ErrInvalidRecord, fa.Filename, err)
	}

	return nil
}

// CheckFindings asserts ValidateFinding on every element of items. The first
// violation is yielded as an error and ends the sequence.
func CheckFindings(items iter.Seq2[Record, error]) iter.Seq2[Record, error] {
	return check(items, ValidateFinding)
}

// CheckAuthorship asserts ValidateFileAuthors on every element of items.
func CheckAuthorship(items iter.Seq2[FileAuthors, error]) iter.Seq2[FileAuthors, error] {
	return check(items, ValidateFileAuthors)
}

// CheckRecords asserts Validate on every element of items.
func CheckRecords(items iter.Seq2[Record, error]) iter.Seq2[Record, error] {
	return check(items, Validate)
}

func check[T any](items iter.Seq2[T, error], fn func(T) error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for item, err := range items {
			if err == nil {
				err = fn(item)
			}

			if err != nil {
				var zero T

				yield(zero, err)

				return
			}

			if !yield(item, nil) {
				return
			}
		}
	}
}

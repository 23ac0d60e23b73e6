package image

import (
	"errors"
	"fmt"
)

var (
	// ErrNotELF is returned when the input is not a parseable ELF file.
	ErrNotELF = errors.New("not an ELF image")
	// ErrUnsupportedClass is returned for anything other than ELFCLASS32.
	ErrUnsupportedClass = errors.New("unsupported ELF class")
	// ErrUnsupportedEncoding is returned for big-endian images.
	ErrUnsupportedEncoding = errors.New("unsupported ELF data encoding")
	// ErrUnsupportedMachine is returned for non-ARM images.
	ErrUnsupportedMachine = errors.New("unsupported ELF machine")
	// ErrNoSymbolTable is returned when the image carries no .symtab.
	ErrNoSymbolTable = errors.New("image has no symbol table")
	// ErrReadOutOfRange is returned for raw reads past the end of the image.
	ErrReadOutOfRange = errors.New("read outside image bounds")
)

// ImageError represents a failure to open or parse an image.
type ImageError struct {
	// Path is the image path (or name for in-memory images)
	Path string
	// Op describes what was being parsed
	Op string
	// Underlying error
	Err error
}

func (e *ImageError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("image %s: %s: %v", e.Path, e.Op, e.Err)
	}
	return fmt.Sprintf("image %s: %v", e.Path, e.Err)
}

func (e *ImageError) Unwrap() error {
	return e.Err
}

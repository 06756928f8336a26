package imagepkg

import "fmt"

// EncodingError reports a payload the chosen symbology cannot encode.
type EncodingError struct {
	Symbology Symbology
	Text      string
	Err       error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode %s barcode %q: %v", e.Symbology, e.Text, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// CompositionError reports a failure while building a card: the photo could
// not be loaded or decoded, or drawing failed. Stage is "photo", "barcode",
// "text" or "encode".
type CompositionError struct {
	Stage string
	Ref   string
	Err   error
}

func (e *CompositionError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("compose card (%s %s): %v", e.Stage, e.Ref, e.Err)
	}
	return fmt.Sprintf("compose card (%s): %v", e.Stage, e.Err)
}

func (e *CompositionError) Unwrap() error { return e.Err }

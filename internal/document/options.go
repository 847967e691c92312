package document

// Option configures a Document during creation.
type Option func(*Document)

// WithText sets the initial content.
func WithText(text string) Option {
	return func(d *Document) {
		d.text = text
	}
}

// WithID sets a fixed identity instead of a random one.
func WithID(id ID) Option {
	return func(d *Document) {
		d.id = id
	}
}

// WithReadOnly creates a read-only document.
// Mutations return ErrReadOnly unless applied as an unguarded batch.
func WithReadOnly() Option {
	return func(d *Document) {
		d.readOnly = true
	}
}

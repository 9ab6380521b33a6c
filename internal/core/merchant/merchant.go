package merchant

import "context"

// Resolver looks up a human-readable merchant name for a network address.
// The campus merchant directory is an external collaborator; the static
// implementation below is a map loaded from configuration.
type Resolver interface {
	Resolve(ctx context.Context, address string) (string, bool)
}

type StaticDirectory struct {
	labels map[string]string
}

func NewStaticDirectory(labels map[string]string) *StaticDirectory {
	if labels == nil {
		labels = map[string]string{}
	}
	return &StaticDirectory{labels: labels}
}

func (d *StaticDirectory) Resolve(_ context.Context, address string) (string, bool) {
	label, ok := d.labels[address]
	return label, ok
}

// LabelOrAddress returns the resolved label, or the raw address when the
// directory has no entry.
func LabelOrAddress(ctx context.Context, r Resolver, address string) string {
	if r != nil {
		if label, ok := r.Resolve(ctx, address); ok && label != "" {
			return label
		}
	}
	return address
}

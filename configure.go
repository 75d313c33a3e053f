package depends

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Configuration is one binding applied by Configure. Target and
// Implementation are type names as produced by TypeName and resolved through
// the container's catalog. A nil name is absent, which is reported
// differently from a name the catalog does not know.
type Configuration struct {
	Target         *string  `yaml:"target" json:"target"`
	Implementation *string  `yaml:"implementation" json:"implementation"`
	Lifetime       Lifetime `yaml:"lifetime,omitempty" json:"lifetime,omitempty"`
}

// Binding returns a Configuration with both names present.
func Binding(target, implementation string, lifetime Lifetime) Configuration {
	return Configuration{
		Target:         &target,
		Implementation: &implementation,
		Lifetime:       lifetime,
	}
}

// Configure registers every record in order, each through Register. It
// stops at the first record that fails. A nil slice is invalid; an empty one
// does nothing.
func (c *Container) Configure(records []Configuration) error {
	if err := c.checkActive("configure"); err != nil {
		return err
	}

	if records == nil {
		return ArgumentError{Argument: "configurations", Cause: ErrConfigurationNil}
	}

	for i, rec := range records {
		if err := c.apply(rec); err != nil {
			return fmt.Errorf("configuration %d: %w", i, err)
		}
	}

	return nil
}

func (c *Container) apply(rec Configuration) error {
	if rec.Target == nil {
		return ArgumentError{Argument: "target", Cause: ErrNameAbsent}
	}
	if rec.Implementation == nil {
		return ArgumentError{Argument: "implementation", Cause: ErrNameAbsent}
	}

	iface, err := c.opts.catalog.LookupType(*rec.Target)
	if err != nil {
		return err
	}

	class, err := c.opts.catalog.LookupType(*rec.Implementation)
	if err != nil {
		return err
	}

	return c.Register(iface, class, rec.Lifetime)
}

// LoadConfiguration decodes a YAML (or JSON) sequence of configuration
// records:
//
//	- target: github.com/acme/app/mail.Sender
//	  implementation: "*github.com/acme/app/mail.SMTPSender"
//	  lifetime: Singleton
//
// Unknown fields are rejected. Empty input yields an empty, non-nil slice.
func LoadConfiguration(r io.Reader) ([]Configuration, error) {
	if r == nil {
		return nil, ArgumentError{Argument: "reader", Cause: ErrConfigurationNil}
	}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var records []Configuration
	if err := dec.Decode(&records); err != nil && !errors.Is(err, io.EOF) {
		return nil, ArgumentError{Argument: "configuration", Cause: fmt.Errorf("decode: %w", err)}
	}

	if records == nil {
		records = []Configuration{}
	}
	return records, nil
}

// Package invitegen implements the offline invite code generator command.
package invitegen

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/fairyhunter13/invite-registry/internal/invite"
	"github.com/fairyhunter13/invite-registry/internal/model"
)

// Output formats.
const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatReport = "report"
)

// Config holds invitegen command configuration.
type Config struct {
	Spec   invite.BatchSpec
	Seed   bool
	Format string
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	var inviteType string

	fs.IntVar(&cfg.Spec.Count, "count", 10, "number of codes to generate")
	fs.StringVar(&inviteType, "type", string(model.InviteTypeClient), "invite type (designer, client, admin)")
	fs.IntVar(&cfg.Spec.ExpiryDays, "days", 30, "days until the codes expire")
	fs.IntVar(&cfg.Spec.MaxUses, "uses", 1, "redemptions allowed per code")
	fs.IntVar(&cfg.Spec.CodeLength, "length", invite.DefaultCodeLength, "characters per code")
	fs.StringVar(&cfg.Spec.Description, "description", "", "description stored on every code")
	fs.BoolVar(&cfg.Seed, "seed", false, "print the seed catalog instead of generating codes")
	fs.StringVar(&cfg.Format, "format", FormatText, "output format (text, json, report)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg.Spec.Type = model.InviteType(inviteType)
	switch cfg.Format {
	case FormatText, FormatJSON, FormatReport:
	default:
		return Config{}, fmt.Errorf("unknown format %q", cfg.Format)
	}
	if !cfg.Seed {
		if err := cfg.Spec.Validate(); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// Run generates the configured codes and writes them to out.
// random supplies the code entropy; nil means crypto/rand.
func Run(cfg Config, out io.Writer, now time.Time, random io.Reader) error {
	if out == nil {
		return errors.New("output writer is required")
	}

	opts := []invite.Option{
		invite.WithClock(func() time.Time { return now }),
		invite.WithGenerator(invite.NewGenerator(random)),
	}

	var catalog *invite.Catalog
	if cfg.Seed {
		catalog = invite.NewSeededCatalog(opts...)
	} else {
		catalog = invite.NewCatalog(opts...)
		if _, err := catalog.Issue(cfg.Spec); err != nil {
			return fmt.Errorf("generate codes: %w", err)
		}
	}

	switch cfg.Format {
	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(catalog.Entries())
	case FormatReport:
		_, err := io.WriteString(out, catalog.Report())
		return err
	default:
		for _, e := range catalog.Entries() {
			if _, err := fmt.Fprintln(out, e.Code); err != nil {
				return err
			}
		}
		return nil
	}
}

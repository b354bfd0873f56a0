package wheel

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ralt/distgen/internal/archive"
	"github.com/ralt/distgen/internal/builder"
	"github.com/ralt/distgen/internal/metadata"
	"github.com/ralt/distgen/internal/models"
	"github.com/ralt/distgen/internal/utils"
	"github.com/sirupsen/logrus"
)

// Builder implements the builder.Builder interface for pure Python wheels
type Builder struct {
	generator string
}

// NewBuilder creates a new wheel builder. generator is recorded in the WHEEL
// file, e.g. "distgen (0.1.0)".
func NewBuilder(generator string) builder.Builder {
	return &Builder{generator: generator}
}

// Build creates {name}-{version}-{tag}-none-any.whl
func (b *Builder) Build(ctx context.Context, config *models.BuildConfig, desc *models.Descriptor) (*models.Artifact, error) {
	pythonTag := config.PythonTag
	if pythonTag == "" {
		pythonTag = "py3"
	}

	sources, err := builder.CollectSources(ctx, desc)
	if err != nil {
		return nil, fmt.Errorf("failed to collect sources: %w", err)
	}
	eff := builder.Effective(desc, sources)

	entries, err := Entries(eff, sources, pythonTag, b.generator)
	if err != nil {
		return nil, err
	}

	dst := filepath.Join(config.OutputDir, utils.WheelFilename(desc.Name, desc.Version, pythonTag))
	logrus.Infof("Writing wheel %s (%d files)", filepath.Base(dst), len(entries))

	if err := archive.WriteFile(dst, archive.FormatZip, builder.Mtime(config), entries); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", dst, err)
	}

	return builder.NewArtifact(models.KindWheel, desc, dst)
}

// Entries returns the wheel contents including a RECORD covering every
// other file
func Entries(desc *models.Descriptor, sources *builder.Sources, pythonTag, generator string) ([]archive.Entry, error) {
	distInfo := utils.DistInfoDir(desc.Name, desc.Version)

	var entries []archive.Entry
	for _, f := range sources.Modules {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(f.Path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, archive.Entry{Name: f.ModulePath, Data: data, Mode: info.Mode()})
	}

	for _, f := range sources.Licenses {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, archive.Entry{Name: distInfo + "/" + path.Base(f.ProjectPath), Data: data})
	}

	entries = append(entries,
		archive.Entry{Name: distInfo + "/METADATA", Data: metadata.Render(desc)},
		archive.Entry{Name: distInfo + "/WHEEL", Data: WheelFile(generator, pythonTag)},
		archive.Entry{Name: distInfo + "/top_level.txt", Data: []byte(strings.Join(desc.TopLevel(), "\n") + "\n")},
	)

	var record bytes.Buffer
	if err := Record(&record, entries, distInfo+"/RECORD"); err != nil {
		return nil, fmt.Errorf("writing RECORD: %w", err)
	}
	entries = append(entries, archive.Entry{Name: distInfo + "/RECORD", Data: record.Bytes()})

	return entries, nil
}

// WheelFile renders the WHEEL metadata file
func WheelFile(generator, pythonTag string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Wheel-Version: 1.0\n")
	fmt.Fprintf(&buf, "Generator: %s\n", generator)
	fmt.Fprintf(&buf, "Root-Is-Purelib: true\n")
	fmt.Fprintf(&buf, "Tag: %s-none-any\n", pythonTag)
	buf.WriteString("\n")
	return buf.Bytes()
}

// Record writes RECORD to out: one "path,digest,size" CSV row per file, and
// the RECORD file itself without digest or size
func Record(out io.Writer, entries []archive.Entry, recordName string) error {
	sorted := make([]archive.Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	w := csv.NewWriter(out)
	for _, e := range sorted {
		if err := w.Write([]string{e.Name, utils.RecordDigest(e.Data), strconv.Itoa(len(e.Data))}); err != nil {
			return err
		}
	}
	if err := w.Write([]string{recordName, "", ""}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// Kind returns the artifact kind this builder produces
func (b *Builder) Kind() models.ArtifactKind {
	return models.KindWheel
}

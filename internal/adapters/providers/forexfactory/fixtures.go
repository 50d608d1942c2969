package forexfactory

import (
	"embed"
	"encoding/json"
	"os"
	"path/filepath"

	domain "calendarbot/internal/domain/calendar"
	"calendarbot/pkg/logger"
)

//go:embed fixtures/*.json
var embeddedFixtures embed.FS

type fixtureFile struct {
	Date   string           `json:"date"`
	Events []map[string]any `json:"events"`
}

// Fixtures holds known page snapshots keyed by local date. Files in dir
// take precedence over the embedded set.
type Fixtures struct {
	dir string
}

// NewFixtures creates a fixture loader; dir may be empty
func NewFixtures(dir string) *Fixtures {
	return &Fixtures{dir: dir}
}

// Load returns the snapshot records for date (YYYY-MM-DD)
func (f *Fixtures) Load(date string) ([]domain.RawRecord, bool) {
	name := date + ".json"

	var data []byte
	var err error
	if f.dir != "" {
		data, err = os.ReadFile(filepath.Join(f.dir, name))
	}
	if f.dir == "" || err != nil {
		data, err = embeddedFixtures.ReadFile("fixtures/" + name)
	}
	if err != nil {
		return nil, false
	}

	var file fixtureFile
	if err := json.Unmarshal(data, &file); err != nil {
		logger.Get().Warnw("Ignoring malformed calendar fixture", "date", date, "error", err)
		return nil, false
	}

	records := make([]domain.RawRecord, 0, len(file.Events))
	for _, ev := range file.Events {
		records = append(records, domain.RawRecord(ev))
	}
	return records, len(records) > 0
}

package clock

import (
	"fmt"
	"time"

	// Embeds the IANA database so zone lookups work on minimal images.
	_ "time/tzdata"
)

// Clock supplies the current instant in the application time zone.
type Clock interface {
	Now() time.Time
}

type zoned struct {
	loc *time.Location
}

// DefaultZone is the application time zone used when none is configured.
const DefaultZone = "America/Bogota"

// New returns a clock reporting wall time in the named IANA zone. An empty
// zone means DefaultZone.
func New(zone string) (Clock, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", zone, err)
	}
	return zoned{loc: loc}, nil
}

func (z zoned) Now() time.Time {
	return time.Now().In(z.loc)
}

// Fixed always reports t. Useful for tests and seed scripts.
type Fixed time.Time

func (f Fixed) Now() time.Time {
	return time.Time(f)
}

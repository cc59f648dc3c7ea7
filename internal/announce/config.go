package announce

import (
	"errors"
	"fmt"

	"github.com/alexanderramin/journey/internal/domain"
	"github.com/go-viper/mapstructure/v2"
)

// ErrInvalidConfig marks a trigger whose config cannot drive it. Such a
// trigger never fires.
var ErrInvalidConfig = errors.New("invalid trigger config")

// decodeConfig decodes raw into out after checking that every required key
// is present. Numbers arriving as float64 from JSON decode into ints, and a
// scalar decodes into a one-element slice.
func decodeConfig(raw map[string]any, out any, required ...string) error {
	for _, key := range required {
		if _, ok := raw[key]; !ok {
			return fmt.Errorf("%w: missing %q", ErrInvalidConfig, key)
		}
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("building config decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func decodeDeadline(raw map[string]any) (domain.DeadlineConfig, domain.FactRef, error) {
	var cfg domain.DeadlineConfig
	if err := decodeConfig(raw, &cfg, "days_before", "fact"); err != nil {
		return cfg, "", err
	}
	f, err := domain.ParseFactRef(cfg.Fact)
	if err != nil {
		return cfg, "", fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, f, nil
}

func decodeCountdown(raw map[string]any) (domain.CountdownConfig, error) {
	var cfg domain.CountdownConfig
	err := decodeConfig(raw, &cfg, "days")
	return cfg, err
}

func decodeStreak(raw map[string]any) (domain.StreakConfig, error) {
	var cfg domain.StreakConfig
	err := decodeConfig(raw, &cfg, "days")
	return cfg, err
}

func decodeSessionSoon(raw map[string]any) (domain.SessionSoonConfig, error) {
	var cfg domain.SessionSoonConfig
	err := decodeConfig(raw, &cfg, "minutes_before")
	return cfg, err
}

// ValidateConfig reports whether a trigger's config would let it fire. Used
// by catalog import to reject bad rows up front.
func ValidateConfig(t *domain.AnnouncementTrigger) error {
	var err error
	switch t.Type {
	case domain.TriggerDeadlineApproaching:
		_, _, err = decodeDeadline(t.Config)
	case domain.TriggerCountdownMilestone:
		_, err = decodeCountdown(t.Config)
	case domain.TriggerStreakMilestone:
		_, err = decodeStreak(t.Config)
	case domain.TriggerSessionStartingSoon:
		_, err = decodeSessionSoon(t.Config)
	case domain.TriggerSessionLiveNow:
		err = nil
	default:
		err = fmt.Errorf("%w: unknown trigger type %q", ErrInvalidConfig, t.Type)
	}
	return err
}

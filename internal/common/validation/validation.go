package validation

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"dicers-bot/internal/common/errors"
)

const (
	MaxInsultLength = 200
	MaxDrinkLength  = 64
	MaxNameLength   = 64
)

// Required trims value and rejects it when nothing is left. usage is shown to
// the user.
func Required(field, value, usage string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.NewValidationError(field, usage)
	}
	return value, nil
}

// MaxLength counts runes, not bytes.
func MaxLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return errors.NewValidationError(field, "Höchstens "+strconv.Itoa(max)+" Zeichen.")
	}
	return nil
}

// Insult validates the argument of /add_insult.
func Insult(text string) (string, error) {
	text, err := Required("text", text, "Text fehlt: /add_insult <Text>")
	if err != nil {
		return "", err
	}
	if strings.ContainsAny(text, "\r\n") {
		return "", errors.NewValidationError("text", "Nur eine Zeile.")
	}
	return text, MaxLength("text", text, MaxInsultLength)
}

// Name validates a user name argument.
func Name(name, usage string) (string, error) {
	name, err := Required("name", name, usage)
	if err != nil {
		return "", err
	}
	return name, MaxLength("name", name, MaxNameLength)
}

// Drink validates the argument of /drink. Empty clears the drink.
func Drink(drink string) (string, error) {
	drink = strings.TrimSpace(drink)
	return drink, MaxLength("drink", drink, MaxDrinkLength)
}

// Minutes parses a positive number of minutes. An empty argument yields def
// and values above max are clamped.
func Minutes(arg string, def, max time.Duration) (time.Duration, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return def, nil
	}
	minutes, err := strconv.Atoi(arg)
	if err != nil || minutes <= 0 {
		return 0, errors.NewValidationError("minutes", "Minuten als positive Zahl angeben.")
	}
	// Large inputs would overflow the duration before clamping.
	if minutes > int(max/time.Minute) {
		return max, nil
	}
	return time.Duration(minutes) * time.Minute, nil
}

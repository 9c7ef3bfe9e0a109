package internal

import (
	"fmt"
)

type Config struct {
	Host                 string `env:"HOST,default=localhost"`
	Port                 int    `env:"PORT,default=8080"`
	LogLevel             string `env:"LOG_LEVEL,required=true"`
	BadgerFilepath       string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath        string `env:"BLUGE_FILEPATH,required=true"`
	CharReplacement      string `env:"MODERATION_CHARACTER_REPLACEMENT,required=true"`
	ConnectionBufferSize int    `env:"CONNECTION_BUFFER_SIZE,required=true"`
	LimitMessages        *int   `env:"LIMIT_MESSAGES"`
	AuthSecret           string `env:"AUTH_SECRET,required=true"`
	DebugPort            int    `env:"DEBUG_PORT"`
}

// CharacterRune validates that the configured replacement is a single rune.
func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}

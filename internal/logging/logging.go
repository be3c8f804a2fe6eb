package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"io"
	"os"
	"strings"
	"time"
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
}

// New returns a console logger writing to out (stderr when nil). Unknown
// levels fall back to info.
func New(level string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	_, inLambda := os.LookupEnv("AWS_LAMBDA_FUNCTION_NAME")
	return log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: inLambda}).Level(lvl)
}

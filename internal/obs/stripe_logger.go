package obs

import "github.com/rs/zerolog"

// StripeLogger adapts zerolog to the leveled logger interface of the Stripe
// client library so its request logs land in the service log stream.
type StripeLogger struct {
	Logger zerolog.Logger
}

func (l StripeLogger) Debugf(format string, v ...interface{}) {
	l.Logger.Debug().Str("component", "stripe").Msgf(format, v...)
}

func (l StripeLogger) Infof(format string, v ...interface{}) {
	l.Logger.Info().Str("component", "stripe").Msgf(format, v...)
}

func (l StripeLogger) Warnf(format string, v ...interface{}) {
	l.Logger.Warn().Str("component", "stripe").Msgf(format, v...)
}

func (l StripeLogger) Errorf(format string, v ...interface{}) {
	l.Logger.Error().Str("component", "stripe").Msgf(format, v...)
}

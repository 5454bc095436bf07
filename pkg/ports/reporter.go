package ports

// Reporter is the sink for fail-soft errors.
// Every error the engine absorbs is handed to the reporter exactly once.
type Reporter interface {
	Report(source string, err error)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(source string, err error)

// Report calls f(source, err).
func (f ReporterFunc) Report(source string, err error) {
	f(source, err)
}

package metrics

// Config labels metrics with service identity.
type Config struct {
	ServiceName string
	Environment string
}

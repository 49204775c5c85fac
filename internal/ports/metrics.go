package ports

// Metric names understood by the default Observability backend.
const (
	MetricSignalsReceived   = "kiosk_signals_received_total"
	MetricFramesDropped     = "kiosk_frames_dropped_total"
	MetricReconnectAttempts = "kiosk_reconnect_attempts_total"
	MetricSequencesStarted  = "kiosk_sequences_started_total"
	MetricDuplicateSignals  = "kiosk_duplicate_signals_total"
	MetricResumeSignals     = "kiosk_resume_signals_total"
	MetricResumeFailures    = "kiosk_resume_failures_total"
	MetricResolutionMisses  = "kiosk_resolution_misses_total"

	GaugeBridgeConnected = "kiosk_bridge_connected"
	GaugeQueueLength     = "kiosk_signal_queue_length"

	HistSequenceDuration = "kiosk_sequence_duration_seconds"
)

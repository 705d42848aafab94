package metrics

import "time"

// NoopMetrics discards everything.
type NoopMetrics struct{}

var _ Recorder = (*NoopMetrics)(nil)

func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordAllowlistDecision(result string)                                    {}
func (n *NoopMetrics) RecordTokenIssued()                                                       {}
func (n *NoopMetrics) RecordRevocation(reason string)                                           {}
func (n *NoopMetrics) RecordTokensPurged(count int)                                             {}
func (n *NoopMetrics) RecordBillingCall(operation string, success bool, duration time.Duration) {}

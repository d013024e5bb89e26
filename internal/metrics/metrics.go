package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ErrTextfileWrite = errors.New("error writing metrics textfile")

	RunCounter        *prometheus.CounterVec
	RunRuntimeSummary *prometheus.SummaryVec

	TransitionCounter        *prometheus.CounterVec
	TransitionRuntimeSummary *prometheus.SummaryVec

	ClassificationCounter *prometheus.CounterVec

	RemoteCommandCounter *prometheus.CounterVec

	InstallActionCounter        *prometheus.CounterVec
	InstallActionRuntimeSummary *prometheus.SummaryVec

	DownloadBytes *prometheus.CounterVec
	UploadBytes   *prometheus.CounterVec
)

func init() {
	RunCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dutfw_runs_total",
			Help: "A counter metric to measure the total count of lifecycle runs, by action and final state",
		},
		[]string{"action", "family", "state"},
	)

	RunRuntimeSummary = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "dutfw_run_duration_seconds",
			Help: "A summary metric to measure the total time spent in a lifecycle run",
		},
		[]string{"action", "family", "state"},
	)

	TransitionCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dutfw_transitions_total",
			Help: "A counter metric to measure the total count of lifecycle transitions executed, successful and failed",
		},
		[]string{"transition", "state"},
	)

	TransitionRuntimeSummary = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "dutfw_transition_duration_seconds",
			Help: "A summary metric to measure the total time spent in each lifecycle transition",
		},
		[]string{"transition", "state"},
	)

	ClassificationCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dutfw_classifications_total",
			Help: "A counter metric to measure device classifications, by category and resolved handler",
		},
		[]string{"category", "handler"},
	)

	RemoteCommandCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dutfw_remote_commands_total",
			Help: "A counter metric to measure the remote commands executed on the DUT, by command and result",
		},
		[]string{"command", "result"},
	)

	InstallActionCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dutfw_install_actions_total",
			Help: "A counter metric to measure the sum of firmware install actions executed",
		},
		[]string{"vendor", "component", "state"},
	)

	InstallActionRuntimeSummary = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "dutfw_install_action_runtime_seconds",
			Help: "A summary metric to measure the total time spent in each install action",
		},
		[]string{"vendor", "component", "state"},
	)

	DownloadBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dutfw_download_bytes",
			Help: "A counter metric to measure firmware downloaded in bytes",
		},
		[]string{"component", "vendor"},
	)

	UploadBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dutfw_upload_bytes",
			Help: "A counter metric to measure firmware uploaded in bytes",
		},
		[]string{"component", "vendor"},
	)
}

// WriteTextfile writes the default registry metrics in the node exporter textfile format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return errors.Wrap(ErrTextfileWrite, err.Error())
	}

	return nil
}

// CommandResult returns the RemoteCommandCounter result label for an exit code.
func CommandResult(exitCode int) string {
	switch exitCode {
	case 0:
		return "success"
	case -1:
		return "error"
	default:
		return "exit_nonzero"
	}
}

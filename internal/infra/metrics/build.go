package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(checkoutBuild) }

var checkoutBuild = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "digital_checkout_build_info",
		Help: "Build of the running checkout service. Always 1.",
	},
	[]string{"version", "revision", "goversion"},
)

func SetBuildInfo(version, revision string) {
	checkoutBuild.Reset()
	checkoutBuild.WithLabelValues(version, revision, runtime.Version()).Set(1)
}

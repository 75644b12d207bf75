package utils

import "strconv"

const defaultServiceName = "waitlist-landing"

func IsTracingEnabled() bool {
	return GetEnvBool("OTEL_TRACES_ENABLED", false)
}

func OTelServiceName() string {
	return GetEnvTrimmedOrDefault("OTEL_SERVICE_NAME", defaultServiceName)
}

// TraceSampleRatio reads OTEL_TRACES_SAMPLER_ARG. Values outside [0,1] sample everything.
func TraceSampleRatio() float64 {
	v := GetEnvTrimmed("OTEL_TRACES_SAMPLER_ARG")
	if v == "" {
		return 1
	}

	ratio, err := strconv.ParseFloat(v, 64)
	if err != nil || ratio < 0 || ratio > 1 {
		return 1
	}

	return ratio
}

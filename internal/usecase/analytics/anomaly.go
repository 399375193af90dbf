package analytics

import (
	"fmt"
	"time"

	"retrieval-pipeline/internal/domain"
)

// AnomalyKind labels a detected execution anomaly.
type AnomalyKind string

const (
	AnomalyScoreOutlier       AnomalyKind = "score_outlier"
	AnomalyLatencySpike       AnomalyKind = "latency_spike"
	AnomalyQualityDegradation AnomalyKind = "quality_degradation"
)

// Anomaly is a single flagged irregularity in one pipeline execution.
type Anomaly struct {
	Kind    AnomalyKind
	message string
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s: %s", a.Kind, a.message)
}

// latencySpikeFactor flags a stage slower than this multiple of the
// running average for that stage.
const latencySpikeFactor = 3.0

// lowCorrelationThreshold marks reranking that reshuffled Stage-1 order
// almost completely, which usually means one of the two models is off.
const lowCorrelationThreshold = 0.3

// DetectAnomalies inspects one execution record against running stage
// latency averages.
func DetectAnomalies(md domain.PipelineMetadata, avgLatency map[string]time.Duration) []Anomaly {
	var anomalies []Anomaly

	for _, stage := range md.Stages {
		dist := stage.Scores
		if dist.Count >= 4 && dist.StdDev > 0 {
			// Outlier: a max more than 3 standard deviations above mean.
			if dist.Max > dist.Mean+3*dist.StdDev {
				anomalies = append(anomalies, Anomaly{
					Kind: AnomalyScoreOutlier,
					message: fmt.Sprintf("stage %s max score %.4f exceeds mean %.4f by >3 stddev",
						stage.Name, dist.Max, dist.Mean),
				})
			}
		}

		if avg, ok := avgLatency[stage.Name]; ok && avg > 0 {
			if float64(stage.Latency) > latencySpikeFactor*float64(avg) {
				anomalies = append(anomalies, Anomaly{
					Kind: AnomalyLatencySpike,
					message: fmt.Sprintf("stage %s latency %v exceeds %.0fx running average %v",
						stage.Name, stage.Latency, latencySpikeFactor, avg),
				})
			}
		}
	}

	if md.Stage2Enabled && !md.Stage2Degraded && md.RankCorrelation < lowCorrelationThreshold {
		anomalies = append(anomalies, Anomaly{
			Kind: AnomalyQualityDegradation,
			message: fmt.Sprintf("stage-1/stage-2 rank correlation %.2f below %.2f",
				md.RankCorrelation, lowCorrelationThreshold),
		})
	}
	if md.Stage2Degraded {
		anomalies = append(anomalies, Anomaly{
			Kind:    AnomalyQualityDegradation,
			message: "reranking degraded to stage-1 ordering",
		})
	}

	return anomalies
}

// Recommendations turns anomalies and the record itself into
// human-readable tuning hints.
func Recommendations(md domain.PipelineMetadata, anomalies []Anomaly) []string {
	var recs []string

	for _, a := range anomalies {
		switch a.Kind {
		case AnomalyLatencySpike:
			recs = append(recs,
				"stage latency spiked; consider the speed preset or lower candidate limits")
		case AnomalyQualityDegradation:
			if md.Stage2Degraded {
				recs = append(recs,
					"reranking provider is failing; check its availability or raise the stage-2 timeout")
			} else {
				recs = append(recs,
					"reranker disagrees strongly with stage-1 ordering; review fusion weights or the rerank model")
			}
		case AnomalyScoreOutlier:
			recs = append(recs,
				"score distribution has heavy outliers; rank_based normalization may be more stable")
		}
	}

	if len(md.Stages) > 0 {
		last := md.Stages[len(md.Stages)-1]
		if last.DocsOut == 0 {
			recs = append(recs,
				"query returned no results; lower similarity thresholds or enable synonym expansion")
		}
	}

	return dedupe(recs)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			out = append(out, s)
			seen[s] = true
		}
	}
	return out
}

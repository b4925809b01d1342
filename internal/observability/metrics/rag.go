package metrics

import (
	"time"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
)

func (m *HTTPServerMetrics) ObserveAnswer(mode domain.AnswerMode, sources int, noEvidence bool, duration time.Duration) {
	label := string(mode)
	m.ragRequestsTotal.WithLabelValues(m.service, label).Inc()
	m.ragRetrievedChunks.WithLabelValues(m.service, label).Observe(float64(sources))
	m.ragDuration.WithLabelValues(m.service, label).Observe(duration.Seconds())

	if noEvidence || sources == 0 {
		m.ragNoContextTotal.WithLabelValues(m.service, label).Inc()
		return
	}
	m.ragRetrievalHitTotal.WithLabelValues(m.service, label).Inc()
}

func (m *HTTPServerMetrics) ObserveQualityGate(mode domain.AnswerMode, repaired, citationBackstop bool) {
	label := string(mode)
	m.qualityGateTotal.WithLabelValues(m.service, label, "accepted").Inc()
	if repaired {
		m.qualityGateTotal.WithLabelValues(m.service, label, "repaired").Inc()
	}
	if citationBackstop {
		m.qualityGateTotal.WithLabelValues(m.service, label, "citation_backstop").Inc()
	}
}

func (m *HTTPServerMetrics) ObserveDecomposition(fallback bool) {
	source := "parsed"
	if fallback {
		source = "fallback"
	}
	m.decompositionTotal.WithLabelValues(m.service, source).Inc()
}

func (m *HTTPServerMetrics) ObserveLexicalReload(points int, duration time.Duration, err error) {
	if err != nil {
		m.lexicalReloadTotal.WithLabelValues(m.service, "error").Inc()
		return
	}
	m.lexicalReloadTotal.WithLabelValues(m.service, "success").Inc()
	m.lexicalReloadSeconds.Observe(duration.Seconds())
	m.lexicalIndexPoints.Set(float64(points))
}

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/osint-brain/backend/internal/investigation"
	"github.com/osint-brain/backend/pkg/logger"
)

// Module is a generic adapter for evidence modules hosted as external probe
// services. The service owns all source-specific logic; this side only speaks
// the probe contract: POST {target, kind} -> {signals: [...]}.
type Module struct {
	id         string
	endpoint   string
	apiKey     string
	caps       []investigation.Capability
	httpClient *http.Client
	log        *zap.Logger
}

type probeRequest struct {
	Target string `json:"target"`
	Kind   string `json:"kind"`
}

type probeResponse struct {
	Signals []wireSignal `json:"signals"`
}

type wireSignal struct {
	Platform         string    `json:"platform"`
	Attribute        string    `json:"attribute"`
	Value            string    `json:"value"`
	ObservedAt       time.Time `json:"observed_at"`
	SourceConfidence float64   `json:"source_confidence"`
}

func New(id, endpoint, apiKey string, caps []investigation.Capability, timeout time.Duration) *Module {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Module{
		id:       id,
		endpoint: endpoint,
		apiKey:   apiKey,
		caps:     caps,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: logger.Named("module." + id),
	}
}

func (m *Module) ID() string {
	return m.id
}

func (m *Module) Capabilities() []investigation.Capability {
	return m.caps
}

func (m *Module) Probe(ctx context.Context, target investigation.Target) ([]investigation.Signal, error) {
	body, err := json.Marshal(probeRequest{Target: target.Value, Kind: string(target.Kind)})
	if err != nil {
		return nil, investigation.Permanentf("encode probe request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, investigation.Permanentf("build probe request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, investigation.Transientf("probe service returned status %d", resp.StatusCode)
	default:
		return nil, investigation.Permanentf("probe service returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, investigation.Transientf("read probe response: %v", err)
	}

	var decoded probeResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, investigation.Permanentf("decode probe response: %v", err)
	}

	signals := make([]investigation.Signal, 0, len(decoded.Signals))
	for _, ws := range decoded.Signals {
		observedAt := ws.ObservedAt
		if observedAt.IsZero() {
			observedAt = time.Now().UTC()
		}
		signals = append(signals, investigation.Signal{
			ModuleID:         m.id,
			Target:           target,
			Platform:         ws.Platform,
			Attribute:        ws.Attribute,
			Value:            ws.Value,
			ObservedAt:       observedAt,
			SourceConfidence: clamp01(ws.SourceConfidence),
		})
	}

	m.log.Debug("Probe completed",
		zap.String("target", target.Value),
		zap.Int("signals", len(signals)),
	)

	return signals, nil
}

// classifyTransportError maps network-level failures onto the retry taxonomy.
// Timeouts and connection errors are transient; everything else is not worth
// a second attempt.
func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return investigation.Transientf("probe timed out: %v", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return investigation.Transientf("probe timed out: %v", err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("probe canceled: %w", err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return investigation.Transientf("probe connection failed: %v", err)
	}

	return investigation.Transientf("probe request failed: %v", err)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

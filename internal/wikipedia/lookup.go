package wikipedia

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/k3a/html2text"

	"github.com/petalnet/petalnet-go/internal/errors"
	"github.com/petalnet/petalnet-go/internal/httpclient"
	"github.com/petalnet/petalnet-go/internal/logger"
)

// State is a step of the summary retry machine.
type State int

const (
	StateAttempting State = iota
	StateBackoff
	StateExhaustedFallback
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateBackoff:
		return "backoff"
	case StateExhaustedFallback:
		return "exhausted"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// transportRetryDelay is the fixed wait after a network failure.
const transportRetryDelay = time.Second

type attemptResult int

const (
	resultOK attemptResult = iota
	resultThrottled
	resultRejected
	resultTransport
)

// throttleSchedule yields 1s, 2s, 4s... one value per attempt, so the value
// taken at attempt n is 2^n seconds.
func throttleSchedule() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = time.Minute
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// fromSummaryAPI runs the retry machine:
//
//	Attempting -> Done               200
//	Attempting -> Backoff            429/403 (wait 2^attempt s) or transport error (wait 1s)
//	Attempting -> ExhaustedFallback  any other status
//	Backoff    -> Attempting         while attempts remain
//	Backoff    -> ExhaustedFallback  budget spent or ctx done
func (s *Service) fromSummaryAPI(ctx context.Context, name string) (string, bool) {
	term := s.tables.QueryTerm(name)
	reqID := uuid.NewString()
	log := s.log.With(logger.String("request_id", reqID), logger.String("term", term))

	schedule := throttleSchedule()
	state := StateAttempting
	attempt := 0
	var delay time.Duration
	var text string

	for {
		if s.observe != nil {
			s.observe(state, attempt)
		}

		switch state {
		case StateAttempting:
			throttleDelay := schedule.NextBackOff()
			var result attemptResult
			var err error
			text, result, err = s.fetchSummary(ctx, name, term)
			attempt++

			switch result {
			case resultOK:
				state = StateDone
			case resultThrottled:
				delay = throttleDelay
				state = StateBackoff
				s.metrics.RecordTextRetry("throttled")
				log.Warn("summary request throttled",
					logger.Int("attempt", attempt),
					logger.Duration("wait", delay),
					logger.Error(err))
			case resultTransport:
				delay = transportRetryDelay
				state = StateBackoff
				s.metrics.RecordTextRetry("transport")
				log.Warn("summary request failed",
					logger.Int("attempt", attempt),
					logger.Error(err))
			default:
				state = StateExhaustedFallback
				log.Info("summary not available", logger.Error(err))
			}

		case StateBackoff:
			if attempt >= s.maxAttempts {
				state = StateExhaustedFallback
				continue
			}
			if err := s.sleep(ctx, delay); err != nil {
				state = StateExhaustedFallback
				continue
			}
			state = StateAttempting

		case StateExhaustedFallback:
			return "", false

		case StateDone:
			return text, true
		}
	}
}

// fetchSummary performs one bounded request and classifies the outcome.
func (s *Service) fetchSummary(ctx context.Context, name, term string) (string, attemptResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	fullURL := s.endpoint + url.PathEscape(term)
	start := time.Now()
	resp, err := s.client.Get(ctx, fullURL)
	s.metrics.ObserveRequestDuration("wikipedia", time.Since(start).Seconds())
	if err != nil {
		return "", resultTransport, errors.New(err).
			Component("wikipedia").
			Category(errors.CategoryNetwork).
			Context("term", term).
			Build()
	}
	defer httpclient.DrainAndClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests, http.StatusForbidden:
		return "", resultThrottled, errors.Newf("summary API returned %d", resp.StatusCode).
			Component("wikipedia").
			Category(errors.CategoryRateLimit).
			Context("term", term).
			Build()
	default:
		return "", resultRejected, errors.Newf("summary API returned %d", resp.StatusCode).
			Component("wikipedia").
			Category(errors.CategoryHTTP).
			Context("term", term).
			Context("status_code", resp.StatusCode).
			Build()
	}

	obj, err := jason.NewObjectFromReader(resp.Body)
	if err != nil {
		// A 200 with an unparseable body is treated like a dropped connection.
		return "", resultTransport, errors.New(err).
			Component("wikipedia").
			Category(errors.CategoryTextProvider).
			Context("term", term).
			Build()
	}
	return extractText(obj, name), resultOK, nil
}

// extractText prefers the plain extract, then the HTML extract, then the placeholder.
func extractText(obj *jason.Object, name string) string {
	if extract, err := obj.GetString("extract"); err == nil && strings.TrimSpace(extract) != "" {
		return extract
	}
	if extractHTML, err := obj.GetString("extract_html"); err == nil {
		if plain := strings.TrimSpace(html2text.HTML2Text(extractHTML)); plain != "" {
			return plain
		}
	}
	return placeholderText(name)
}

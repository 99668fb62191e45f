package judge_service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"github.com/tcp_snm/tracker/internal/tracker_errors"
)

const (
	DefaultTimeout      = 10 * time.Second
	memoSize            = 1024
	maxErrorBodyPreview = 256
)

// Client talks to the judge's public stats API. Every call carries its own
// timeout. Profile, solved and calendar lookups are memoized for memoTTL
// unless the context asks for fresh reads; accepted submissions are always
// fetched fresh.
type Client struct {
	baseUrl    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	memo       *expirable.LRU[string, any]
	logger     *logrus.Entry
}

var _ Oracle = (*Client)(nil)

func NewClient(baseUrl string, timeout, memoTTL time.Duration) (*Client, error) {
	parsedUrl, err := url.Parse(baseUrl)
	if err != nil || parsedUrl.Scheme == "" || parsedUrl.Host == "" {
		return nil, fmt.Errorf("%w, invalid judge base url %q", tracker_errors.ErrInvalidRequest, baseUrl)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseUrl:    parsedUrl,
		httpClient: &http.Client{},
		timeout:    timeout,
		logger:     logrus.WithField("from", "judge client"),
	}
	if memoTTL > 0 {
		c.memo = expirable.NewLRU[string, any](memoSize, nil, memoTTL)
	}
	return c, nil
}

func (c *Client) endpoint(username string, parts ...string) url.URL {
	u := *c.baseUrl
	u.Path = u.Path + "/" + url.PathEscape(username)
	for _, p := range parts {
		u.Path += "/" + p
	}
	return u
}

// getJson performs one GET with the client timeout and decodes the body into out
func (c *Client) getJson(ctx context.Context, target url.URL, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		err = fmt.Errorf("%w, failed to create http request with ctx: %w", tracker_errors.ErrInternal, err)
		c.logger.Error(err)
		return err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		// timeout from the context or a network issue
		err = fmt.Errorf(
			"%w, failed to get response from %v: %w",
			tracker_errors.ErrHttpResponse, target.String(), err,
		)
		c.logger.Error(err)
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		preview, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBodyPreview))
		err = fmt.Errorf(
			"%w, %v responded with status %d: %s",
			tracker_errors.ErrHttpResponse, target.String(), res.StatusCode, preview,
		)
		c.logger.Error(err)
		return err
	}

	if err = json.NewDecoder(res.Body).Decode(out); err != nil {
		err = fmt.Errorf(
			"%w, cannot decode response of %v to %T: %w",
			tracker_errors.ErrHttpResponse, target.String(), out, err,
		)
		c.logger.Error(err)
		return err
	}

	c.logger.Debugf("recieved response from %v", target.String())
	return nil
}

func upstreamError(target url.URL, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w, %v: %w", tracker_errors.ErrHttpResponse, target.String(), err)
}

type freshReadsKey struct{}

// WithFreshReads marks ctx so memoized lookups made with it go to the judge.
// The fresh answers still replace the memoized ones.
func WithFreshReads(ctx context.Context) context.Context {
	return context.WithValue(ctx, freshReadsKey{}, true)
}

// FreshReadsRequested reports whether ctx was marked by WithFreshReads
func FreshReadsRequested(ctx context.Context) bool {
	fresh, _ := ctx.Value(freshReadsKey{}).(bool)
	return fresh
}

func memoized[T any](ctx context.Context, c *Client, key string, fetch func() (T, error)) (T, error) {
	if c.memo != nil && !FreshReadsRequested(ctx) {
		if v, ok := c.memo.Get(key); ok {
			if typed, ok := v.(T); ok {
				return typed, nil
			}
		}
	}
	v, err := fetch()
	if err != nil {
		return v, err
	}
	if c.memo != nil {
		c.memo.Add(key, v)
	}
	return v, nil
}

func (c *Client) GetProfile(ctx context.Context, username string) (Profile, error) {
	return memoized(ctx, c, "profile:"+username, func() (Profile, error) {
		target := c.endpoint(username)
		var res profileResponse
		if err := c.getJson(ctx, target, &res); err != nil {
			return Profile{}, err
		}
		if err := upstreamError(target, res.err()); err != nil {
			c.logger.Warn(err)
			return Profile{}, err
		}
		return res.Profile, nil
	})
}

func (c *Client) GetSolved(ctx context.Context, username string) (Solved, error) {
	return memoized(ctx, c, "solved:"+username, func() (Solved, error) {
		target := c.endpoint(username, "solved")
		var res solvedResponse
		if err := c.getJson(ctx, target, &res); err != nil {
			return Solved{}, err
		}
		if err := upstreamError(target, res.err()); err != nil {
			c.logger.Warn(err)
			return Solved{}, err
		}
		return res.Solved, nil
	})
}

func (c *Client) GetCalendar(ctx context.Context, username string) (Calendar, error) {
	return memoized(ctx, c, "calendar:"+username, func() (Calendar, error) {
		target := c.endpoint(username, "calendar")
		var res calendarResponse
		if err := c.getJson(ctx, target, &res); err != nil {
			return nil, err
		}
		if err := upstreamError(target, res.err()); err != nil {
			c.logger.Warn(err)
			return nil, err
		}
		cal, err := decodeCalendar(res.SubmissionCalendar)
		if err != nil {
			err = upstreamError(target, err)
			c.logger.Error(err)
			return nil, err
		}
		return cal, nil
	})
}

func (c *Client) GetAcceptedSubmissions(ctx context.Context, username string, limit int) ([]AcceptedSubmission, error) {
	target := c.endpoint(username, "acSubmission")
	if limit > 0 {
		params := url.Values{}
		params.Add("limit", strconv.Itoa(limit))
		target.RawQuery = params.Encode()
	}

	var res acSubmissionResponse
	if err := c.getJson(ctx, target, &res); err != nil {
		return nil, err
	}
	if err := upstreamError(target, res.err()); err != nil {
		c.logger.Warn(err)
		return nil, err
	}

	subs := make([]AcceptedSubmission, 0, len(res.Submission))
	for _, s := range res.Submission {
		subs = append(subs, AcceptedSubmission{
			Title:       s.Title,
			ProblemSlug: s.TitleSlug,
			Language:    s.Lang,
			Timestamp:   time.Time(s.Timestamp),
		})
	}
	return subs, nil
}

func (c *Client) GetSkillStats(ctx context.Context, username string) (SkillStats, error) {
	target := c.endpoint(username, "skill")
	var res skillResponse
	if err := c.getJson(ctx, target, &res); err != nil {
		return SkillStats{}, err
	}
	if err := upstreamError(target, res.err()); err != nil {
		return SkillStats{}, err
	}
	return res.SkillStats, nil
}

func (c *Client) GetLanguageStats(ctx context.Context, username string) ([]LanguageStat, error) {
	target := c.endpoint(username, "language")
	var res languageResponse
	if err := c.getJson(ctx, target, &res); err != nil {
		return nil, err
	}
	if err := upstreamError(target, res.err()); err != nil {
		return nil, err
	}
	return res.LanguageProblemCount, nil
}

// SolvedOrZero returns zero counts when the judge cannot be reached
func SolvedOrZero(ctx context.Context, o Oracle, username string) Solved {
	solved, err := o.GetSolved(ctx, username)
	if err != nil {
		logrus.Warnf("using zero solved counts for %v: %v", username, err)
		return Solved{}
	}
	return solved
}

// CalendarOrEmpty returns an empty calendar when the judge cannot be reached
func CalendarOrEmpty(ctx context.Context, o Oracle, username string) Calendar {
	cal, err := o.GetCalendar(ctx, username)
	if err != nil {
		logrus.Warnf("using empty calendar for %v: %v", username, err)
		return Calendar{}
	}
	return cal
}

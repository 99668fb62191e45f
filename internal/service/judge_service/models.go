package judge_service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Oracle is the judge platform as the rest of the service sees it
type Oracle interface {
	GetProfile(ctx context.Context, username string) (Profile, error)
	GetSolved(ctx context.Context, username string) (Solved, error)
	GetCalendar(ctx context.Context, username string) (Calendar, error)
	GetAcceptedSubmissions(ctx context.Context, username string, limit int) ([]AcceptedSubmission, error)
	GetSkillStats(ctx context.Context, username string) (SkillStats, error)
	GetLanguageStats(ctx context.Context, username string) ([]LanguageStat, error)
}

type Profile struct {
	Username    string `json:"username"`
	Name        string `json:"name"`
	Avatar      string `json:"avatar"`
	Ranking     int    `json:"ranking"`
	Reputation  int    `json:"reputation"`
	TotalSolved int    `json:"totalSolved"`
}

type Solved struct {
	SolvedProblem int `json:"solvedProblem"`
	EasySolved    int `json:"easySolved"`
	MediumSolved  int `json:"mediumSolved"`
	HardSolved    int `json:"hardSolved"`
}

// Calendar maps the unix second at which a day starts to its activity count
type Calendar map[int64]int

type AcceptedSubmission struct {
	Title       string
	ProblemSlug string
	Language    string
	Timestamp   time.Time
}

type TagCount struct {
	TagName        string `json:"tagName"`
	TagSlug        string `json:"tagSlug"`
	ProblemsSolved int    `json:"problemsSolved"`
}

type SkillStats struct {
	Fundamental  []TagCount `json:"fundamental"`
	Intermediate []TagCount `json:"intermediate"`
	Advanced     []TagCount `json:"advanced"`
}

type LanguageStat struct {
	LanguageName   string `json:"languageName"`
	ProblemsSolved int    `json:"problemsSolved"`
}

// millisecond values start at 1e12 (September 2001 in ms, year 33658 in s)
const millisecondThreshold = 1_000_000_000_000

// NormalizeTimestamp turns a raw judge timestamp into a UTC time. The judge
// reports seconds; millisecond values are recognised by magnitude.
func NormalizeTimestamp(raw int64) time.Time {
	if raw >= millisecondThreshold || raw <= -millisecondThreshold {
		return time.UnixMilli(raw).UTC()
	}
	return time.Unix(raw, 0).UTC()
}

// judgeTimestamp decodes a timestamp sent as a JSON number or a numeric string
type judgeTimestamp time.Time

func (ts *judgeTimestamp) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	if s == "" || s == "null" {
		return fmt.Errorf("empty timestamp")
	}
	raw, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// some proxies send floats
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("cannot parse timestamp %q: %w", s, err)
		}
		raw = int64(f)
	}
	*ts = judgeTimestamp(NormalizeTimestamp(raw))
	return nil
}

type upstreamErrors struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (u upstreamErrors) err() error {
	if len(u.Errors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(u.Errors))
	for _, e := range u.Errors {
		msgs = append(msgs, e.Message)
	}
	return fmt.Errorf("judge reported errors: %s", strings.Join(msgs, "; "))
}

type profileResponse struct {
	upstreamErrors
	Profile
}

type solvedResponse struct {
	upstreamErrors
	Solved
}

type calendarResponse struct {
	upstreamErrors
	SubmissionCalendar json.RawMessage `json:"submissionCalendar"`
}

type acSubmissionResponse struct {
	upstreamErrors
	Count      int `json:"count"`
	Submission []struct {
		Title     string         `json:"title"`
		TitleSlug string         `json:"titleSlug"`
		Lang      string         `json:"lang"`
		Timestamp judgeTimestamp `json:"timestamp"`
	} `json:"submission"`
}

type skillResponse struct {
	upstreamErrors
	SkillStats
}

type languageResponse struct {
	upstreamErrors
	LanguageProblemCount []LanguageStat `json:"languageProblemCount"`
}

// decodeCalendar accepts the calendar either as an object or as a JSON
// document encoded in a string, which is what the judge actually sends.
func decodeCalendar(raw json.RawMessage) (Calendar, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Calendar{}, nil
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		if strings.TrimSpace(encoded) == "" {
			return Calendar{}, nil
		}
		raw = json.RawMessage(encoded)
	}

	var days map[string]int
	if err := json.Unmarshal(raw, &days); err != nil {
		return nil, fmt.Errorf("cannot decode submission calendar: %w", err)
	}

	cal := make(Calendar, len(days))
	for key, count := range days {
		sec, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("calendar key %q is not a timestamp: %w", key, err)
		}
		cal[NormalizeTimestamp(sec).Unix()] += count
	}
	return cal, nil
}

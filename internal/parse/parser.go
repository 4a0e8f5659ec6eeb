package parse

import (
	"net"
	"regexp"
	"time"

	"sshwatch/internal/model"
)

var (
	reSyslogTS      = regexp.MustCompile(`^\s*([A-Za-z]{3}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})`)
	reFailedInvalid = regexp.MustCompile(`Failed password for invalid user (\S+) from (\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)
	reFailed        = regexp.MustCompile(`Failed password for (\S+) from (\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)
	reInvalidUser   = regexp.MustCompile(`Invalid user (\S+) from (\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)
	reAccepted      = regexp.MustCompile(`Accepted password for (\S+) from (\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)
)

// futureGrace bounds how far ahead of the clock a parsed timestamp may sit
// before the year rolls back. Syslog timestamps carry no year, so a line
// stamped Dec 31 read just after midnight on Jan 1 lands almost a year in
// the future under naive year inference.
const futureGrace = 24 * time.Hour

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse classifies a raw auth-log line. The second return is false for any
// line that does not match a recognized template or carries an unparsable
// field; unmatched input is a skip, never an error.
func (p *Parser) Parse(line string, now time.Time) (model.LoginAttempt, bool) {
	ts, ok := extractTimestamp(line, now)
	if !ok {
		return model.LoginAttempt{}, false
	}

	var user, ip string
	var outcome model.Outcome
	switch {
	case match(reFailedInvalid, line, &user, &ip):
		outcome = model.OutcomeInvalidUser
	case match(reFailed, line, &user, &ip):
		outcome = model.OutcomeFailed
	case match(reInvalidUser, line, &user, &ip):
		outcome = model.OutcomeInvalidUser
	case match(reAccepted, line, &user, &ip):
		outcome = model.OutcomeAccepted
	default:
		return model.LoginAttempt{}, false
	}
	if user == "" || net.ParseIP(ip) == nil {
		return model.LoginAttempt{}, false
	}
	return model.LoginAttempt{
		Timestamp: ts,
		Username:  user,
		SourceIP:  ip,
		Outcome:   outcome,
		Raw:       line,
	}, true
}

func match(re *regexp.Regexp, line string, user, ip *string) bool {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	*user = m[1]
	*ip = m[2]
	return true
}

func extractTimestamp(line string, now time.Time) (time.Time, bool) {
	m := reSyslogTS.FindStringSubmatch(line)
	if m == nil {
		return time.Time{}, false
	}
	loc := now.Location()
	t, err := time.ParseInLocation(time.Stamp, m[1], loc)
	if err != nil {
		return time.Time{}, false
	}
	ts := time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
	if ts.Sub(now) > futureGrace {
		ts = ts.AddDate(-1, 0, 0)
	}
	return ts, true
}

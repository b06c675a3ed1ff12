//go:build ruleguard

// Package gorules defines custom linter rules for the gazetteer code base.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// RawSQLConcat flags SQL built by string concatenation or Sprintf. Values go
// through placeholders so criteria from query strings never reach the SQL text.
func RawSQLConcat(m dsl.Matcher) {
	m.Match(
		`$db.Raw($q + $x, $*_)`,
		`$db.Exec($q + $x, $*_)`,
		`$db.Where($q + $x, $*_)`,
	).
		Where(m["db"].Type.Is("*gorm.DB")).
		Report(`do not concatenate SQL, pass values as ? placeholders`)

	m.Match(
		`$db.Raw(fmt.Sprintf($*_), $*_)`,
		`$db.Exec(fmt.Sprintf($*_), $*_)`,
		`$db.Where(fmt.Sprintf($*_), $*_)`,
	).
		Where(m["db"].Type.Is("*gorm.DB")).
		Report(`do not format SQL with fmt.Sprintf, pass values as ? placeholders`)
}

// StdLogging flags the standard log package outside of tests. Logging goes
// through internal/logger so module levels and file output apply.
func StdLogging(m dsl.Matcher) {
	m.Import("log")
	m.Match(
		`log.Printf($*_)`,
		`log.Println($*_)`,
		`log.Print($*_)`,
		`log.Fatalf($*_)`,
		`log.Fatal($*_)`,
	).
		Where(!m.File().Name.Matches(`_test\.go$`)).
		Report(`use the module logger from internal/logger instead of the log package`)
}

// ErrorStringCompare flags matching errors by message.
func ErrorStringCompare(m dsl.Matcher) {
	m.Match(
		`$err.Error() == $s`,
		`$err.Error() != $s`,
		`strings.Contains($err.Error(), $s)`,
	).
		Where(m["err"].Type.Implements("error") && !m.File().Name.Matches(`_test\.go$`)).
		Report(`compare errors with errors.Is or errors.IsCategory, not by message`)
}

// EchoErrorLeak flags handlers that send raw error text to clients.
// HandleError logs the cause and returns a correlation id instead.
func EchoErrorLeak(m dsl.Matcher) {
	m.Match(
		`$c.JSON($status, $err.Error())`,
		`$c.String($status, $err.Error())`,
	).
		Where(m["c"].Type.Is("echo.Context") && m["err"].Type.Implements("error")).
		Report(`use HandleError instead of returning $err.Error() to the client`)
}

// WaitGroupGo suggests wg.Go for the Add/Done goroutine pattern (Go 1.25+).
func WaitGroupGo(m dsl.Matcher) {
	m.Match(
		`$wg.Add(1); go func() { defer $wg.Done(); $*body }()`,
	).
		Where(m["wg"].Type.Is("sync.WaitGroup") || m["wg"].Type.Is("*sync.WaitGroup")).
		Report(`use $wg.Go(func() { ... }) instead of Add(1) with defer Done()`).
		Suggest(`$wg.Go(func() { $body })`)
}

// TimeDateTimeConstants flags magic layout strings with a named constant.
func TimeDateTimeConstants(m dsl.Matcher) {
	m.Match(`$t.Format("2006-01-02 15:04:05")`).
		Report(`use time.DateTime`).
		Suggest(`$t.Format(time.DateTime)`)
	m.Match(`$t.Format("2006-01-02")`).
		Report(`use time.DateOnly`).
		Suggest(`$t.Format(time.DateOnly)`)
}

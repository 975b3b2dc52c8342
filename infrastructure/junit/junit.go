// Package junit writes test results in the JUnit XML format read by CI servers.
package junit

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"demoqa-e2e/domain/report"
)

type testSuites struct {
	XMLName  xml.Name    `xml:"testsuites"`
	Name     string      `xml:"name,attr"`
	Tests    int         `xml:"tests,attr"`
	Failures int         `xml:"failures,attr"`
	Skipped  int         `xml:"skipped,attr"`
	Time     string      `xml:"time,attr"`
	Suites   []testSuite `xml:"testsuite"`
}

type testSuite struct {
	Name      string     `xml:"name,attr"`
	Tests     int        `xml:"tests,attr"`
	Failures  int        `xml:"failures,attr"`
	Skipped   int        `xml:"skipped,attr"`
	Time      string     `xml:"time,attr"`
	Timestamp string     `xml:"timestamp,attr,omitempty"`
	Cases     []testCase `xml:"testcase"`
}

type testCase struct {
	Name      string   `xml:"name,attr"`
	Classname string   `xml:"classname,attr"`
	Time      string   `xml:"time,attr"`
	Failure   *failure `xml:"failure,omitempty"`
	Skipped   *skipped `xml:"skipped,omitempty"`
	SystemOut string   `xml:"system-out,omitempty"`
}

type failure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Text    string `xml:",chardata"`
}

type skipped struct {
	Message string `xml:"message,attr,omitempty"`
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

// build groups results by "<profile>.<suite>" in first-seen order.
func build(name string, results []*report.Result) testSuites {
	index := make(map[string]int)
	var suites []testSuite
	var total time.Duration

	for _, r := range results {
		key := r.Profile + "." + r.Suite
		i, ok := index[key]
		if !ok {
			i = len(suites)
			index[key] = i
			suites = append(suites, testSuite{Name: key})
			if !r.StartedAt.IsZero() {
				suites[i].Timestamp = r.StartedAt.UTC().Format(time.RFC3339)
			}
		}

		tc := testCase{Name: r.Name, Classname: key, Time: seconds(r.Duration)}
		switch r.Outcome {
		case report.OutcomeFailed:
			tc.Failure = &failure{Message: firstLine(r.Error), Type: "failure", Text: r.Error}
			suites[i].Failures++
		case report.OutcomeSkipped:
			tc.Skipped = &skipped{Message: r.Error}
			suites[i].Skipped++
		}
		if r.Screenshot != "" {
			tc.SystemOut = "[[ATTACHMENT|" + r.Screenshot + "]]"
		}
		suites[i].Cases = append(suites[i].Cases, tc)
		suites[i].Tests++
		total += r.Duration
	}

	out := testSuites{Name: name, Suites: suites, Time: seconds(total)}
	for i := range suites {
		var d time.Duration
		for _, r := range results {
			if r.Profile+"."+r.Suite == suites[i].Name {
				d += r.Duration
			}
		}
		suites[i].Time = seconds(d)
		out.Tests += suites[i].Tests
		out.Failures += suites[i].Failures
		out.Skipped += suites[i].Skipped
	}
	return out
}

func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' {
			return s[:i]
		}
	}
	return s
}

// Encode writes the report for results to w.
func Encode(w io.Writer, name string, results []*report.Result) error {
	sorted := append([]*report.Result(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartedAt.Before(sorted[j].StartedAt)
	})

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(build(name, sorted)); err != nil {
		return fmt.Errorf("failed to encode junit report: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteFile writes the report to path, creating parent directories.
func WriteFile(path, name string, results []*report.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create junit report: %w", err)
	}
	if err := Encode(f, name, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

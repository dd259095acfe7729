package godotcheck

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"
)

// SortIssues orders issues by severity, then message. Issues that compare
// equal keep their relative order.
func SortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Severity != issues[j].Severity {
			return issues[i].Severity < issues[j].Severity
		}
		return issues[i].Message < issues[j].Message
	})
}

// FilterIssues returns the issues at or above min, preserving order.
func FilterIssues(issues []Issue, min Severity) []Issue {
	out := make([]Issue, 0, len(issues))
	for _, i := range issues {
		if i.Severity >= min {
			out = append(out, i)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// SARIF
// ---------------------------------------------------------------------------

const sarifSchema = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"

type sarifDocument struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}
type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}
type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}
type sarifDriver struct {
	Name  string      `json:"name"`
	Rules []sarifRule `json:"rules"`
}
type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}
type sarifResult struct {
	RuleID  string          `json:"ruleId"`
	Level   string          `json:"level"`
	Message sarifMessage    `json:"message"`
	Locs    []sarifLocation `json:"locations,omitempty"`
}
type sarifMessage struct {
	Text string `json:"text"`
}
type sarifLocation struct {
	PhysicalLocation sarifPhysical `json:"physicalLocation"`
}
type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           *sarifRegion  `json:"region,omitempty"`
}
type sarifArtifact struct {
	URI string `json:"uri"`
}
type sarifRegion struct {
	StartLine int `json:"startLine"`
}

var sarifRules = []sarifRule{
	{ID: string(RuleGeneral), ShortDescription: sarifMessage{Text: "Project manifest, resource and script checks"}},
	{ID: string(RuleScene), ShortDescription: sarifMessage{Text: "Scene node and resource reference checks"}},
	{ID: string(RuleSignal), ShortDescription: sarifMessage{Text: "Scene signal connection checks"}},
}

func sarifLevel(s Severity) string {
	switch s {
	case Error:
		return "error"
	case Warn:
		return "warning"
	default:
		return "note"
	}
}

// ToSARIF renders the report's issues as a SARIF 2.1.0 document with a
// single run.
func ToSARIF(report *ProjectReport) ([]byte, error) {
	results := make([]sarifResult, 0, len(report.Issues))
	for _, i := range report.Issues {
		rule := i.Rule
		if rule == "" {
			rule = RuleGeneral
		}
		r := sarifResult{
			RuleID:  string(rule),
			Level:   sarifLevel(i.Severity),
			Message: sarifMessage{Text: i.Message},
		}
		if i.File != "" {
			loc := sarifLocation{PhysicalLocation: sarifPhysical{ArtifactLocation: sarifArtifact{URI: i.File}}}
			if i.Line > 0 {
				loc.PhysicalLocation.Region = &sarifRegion{StartLine: i.Line}
			}
			r.Locs = append(r.Locs, loc)
		}
		results = append(results, r)
	}

	doc := sarifDocument{
		Schema:  sarifSchema,
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool:    sarifTool{Driver: sarifDriver{Name: string(RuleGeneral), Rules: sarifRules}},
			Results: results,
		}},
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("sarif: %w", err)
	}
	return data, nil
}

// ---------------------------------------------------------------------------
// JUnit
// ---------------------------------------------------------------------------

type junitTestsuite struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Cases    []junitTestcase `xml:"testcase"`
}
type junitTestcase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
}
type junitFailure struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

// ToJUnit renders every issue as a failed test case of one suite. The
// class name is the issue's rule, so CI can group findings by component.
func ToJUnit(report *ProjectReport) ([]byte, error) {
	suite := junitTestsuite{
		Name:     string(RuleGeneral),
		Tests:    len(report.Issues),
		Failures: len(report.Issues),
		Cases:    make([]junitTestcase, 0, len(report.Issues)),
	}
	for _, i := range report.Issues {
		rule := i.Rule
		if rule == "" {
			rule = RuleGeneral
		}
		suite.Cases = append(suite.Cases, junitTestcase{
			Name:      i.Message,
			Classname: string(rule),
			Failure:   &junitFailure{Message: i.Severity.String(), Body: i.File},
		})
	}
	data, err := xml.MarshalIndent(suite, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("junit: %w", err)
	}
	out := append([]byte(xml.Header), data...)
	return append(out, '\n'), nil
}

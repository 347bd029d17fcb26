// Command matchrun executes one mentor-student matching batch from JSON
// table files, stores the run snapshot in the configured run store, and
// exports the run artifacts. It can also list stored runs or print one.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"mentormatch/internal/core"
	"mentormatch/internal/crosswalk"
	"mentormatch/internal/tabular"
	"mentormatch/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

type options struct {
	mentorsPath  string
	studentsPath string
	groupsPath   string
	schoolsPath  string
	synonymsPath string
	policyPath   string
	runID        string
	list         bool
	show         string
	trace        bool
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("matchrun", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.mentorsPath, "mentors", "", "path to mentor roster table (JSON)")
	fs.StringVar(&opts.studentsPath, "students", "", "path to student table (JSON)")
	fs.StringVar(&opts.groupsPath, "groups", "", "path to subject reference table (JSON)")
	fs.StringVar(&opts.schoolsPath, "schools", "", "path to school reference table (JSON)")
	fs.StringVar(&opts.synonymsPath, "synonyms", "", "path to subject synonym map (JSON)")
	fs.StringVar(&opts.policyPath, "policy", "", "path to policy overrides (JSON), defaults apply when unset")
	fs.StringVar(&opts.runID, "run-id", "", "explicit run id (generated when empty)")
	fs.BoolVar(&opts.list, "list", false, "list stored runs and exit")
	fs.StringVar(&opts.show, "show", "", "print the stored run with this id and exit")
	fs.BoolVar(&opts.trace, "trace", false, "emit phase trace spans as JSON lines on stderr")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := run(opts, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "matchrun: %v\n", err)
		return 1
	}
	return 0
}

func run(opts options, stdout, stderr io.Writer) error {
	ctx := context.Background()

	store, err := core.OpenResultStore(ctx)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer func() { _ = store.Close() }()

	svcOpts := []core.Option{core.WithMetrics(core.NewExpvarMetricsRecorder("matchrun"))}
	if opts.trace {
		svcOpts = append(svcOpts, core.WithTracer(core.NewJSONTracer(stderr)))
	}

	if opts.list {
		svc := core.NewService(store, svcOpts...)
		summaries, err := svc.Runs(ctx)
		if err != nil {
			return err
		}
		return writeJSON(stdout, summaries)
	}
	if opts.show != "" {
		svc := core.NewService(store, svcOpts...)
		snapshot, ok, err := svc.Run(ctx, opts.show)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("run %s not found", opts.show)
		}
		return writeJSON(stdout, snapshot)
	}

	if opts.mentorsPath == "" || opts.studentsPath == "" || opts.groupsPath == "" {
		return fmt.Errorf("-mentors, -students and -groups are required")
	}

	artifacts, err := core.OpenArtifactStore(ctx)
	if err != nil {
		return fmt.Errorf("open artifact store: %w", err)
	}
	svcOpts = append(svcOpts, core.WithArtifactStore(artifacts))
	svc := core.NewService(store, svcOpts...)

	input, diagnostics, err := loadRunInput(opts)
	if err != nil {
		return err
	}

	out, err := svc.ExecuteRun(ctx, input)
	if err != nil {
		return err
	}
	diagnostics.Merge(out.Result)

	return writeJSON(stdout, runReport{
		RunID:       out.Snapshot.RunID,
		Students:    len(out.Snapshot.Decisions),
		Allocated:   len(out.Snapshot.Allocations),
		MatrixRows:  len(out.Snapshot.Matrix),
		PoolKeptPct: out.Snapshot.Gate.PercentPoolKept,
		Coverage:    out.Snapshot.Metrics.CoverageRatio,
		Violations:  diagnostics.Violations,
		Artifacts:   artifactKeys(out),
	})
}

type runReport struct {
	RunID       string             `json:"run_id"`
	Students    int                `json:"students"`
	Allocated   int                `json:"allocated"`
	MatrixRows  int                `json:"matrix_rows"`
	PoolKeptPct float64            `json:"pool_kept_pct"`
	Coverage    float64            `json:"coverage"`
	Violations  []domain.Violation `json:"violations,omitempty"`
	Artifacts   []string           `json:"artifacts,omitempty"`
}

func artifactKeys(out core.RunOutput) []string {
	keys := make([]string, 0, len(out.Artifacts))
	for _, info := range out.Artifacts {
		keys = append(keys, info.Key)
	}
	return keys
}

// loadRunInput reads and boundary-maps every input table. Value coercions
// surface as diagnostics; shape errors (missing columns) abort the run.
func loadRunInput(opts options) (core.RunInput, domain.Result, error) {
	var diagnostics domain.Result

	policy := domain.DefaultPolicy()
	if opts.policyPath != "" {
		if err := decodeFile(opts.policyPath, &policy); err != nil {
			return core.RunInput{}, diagnostics, fmt.Errorf("policy: %w", err)
		}
	}

	var groupsTable tabular.Table
	if err := decodeFile(opts.groupsPath, &groupsTable); err != nil {
		return core.RunInput{}, diagnostics, fmt.Errorf("groups: %w", err)
	}
	groups, res, err := tabular.MapGroups(groupsTable)
	if err != nil {
		return core.RunInput{}, diagnostics, fmt.Errorf("groups: %w", err)
	}
	diagnostics.Merge(res)

	var synonyms map[string]string
	if opts.synonymsPath != "" {
		if err := decodeFile(opts.synonymsPath, &synonyms); err != nil {
			return core.RunInput{}, diagnostics, fmt.Errorf("synonyms: %w", err)
		}
	}

	var schools []domain.SchoolRef
	if opts.schoolsPath != "" {
		var schoolsTable tabular.Table
		if err := decodeFile(opts.schoolsPath, &schoolsTable); err != nil {
			return core.RunInput{}, diagnostics, fmt.Errorf("schools: %w", err)
		}
		schools, res, err = tabular.MapSchools(schoolsTable)
		if err != nil {
			return core.RunInput{}, diagnostics, fmt.Errorf("schools: %w", err)
		}
		diagnostics.Merge(res)
	}

	var mentorsTable tabular.Table
	if err := decodeFile(opts.mentorsPath, &mentorsTable); err != nil {
		return core.RunInput{}, diagnostics, fmt.Errorf("mentors: %w", err)
	}
	mentors, res, err := tabular.MapMentors(mentorsTable, policy)
	if err != nil {
		return core.RunInput{}, diagnostics, fmt.Errorf("mentors: %w", err)
	}
	diagnostics.Merge(res)

	var studentsTable tabular.Table
	if err := decodeFile(opts.studentsPath, &studentsTable); err != nil {
		return core.RunInput{}, diagnostics, fmt.Errorf("students: %w", err)
	}
	resolver := crosswalk.New(groups, synonyms)
	students, res, err := tabular.MapStudents(studentsTable, resolver, policy)
	if err != nil {
		return core.RunInput{}, diagnostics, fmt.Errorf("students: %w", err)
	}
	diagnostics.Merge(res)

	return core.RunInput{
		RunID:    opts.runID,
		Groups:   groups,
		Synonyms: synonyms,
		Schools:  schools,
		Mentors:  mentors,
		Students: students,
		Policy:   policy,
	}, diagnostics, nil
}

func decodeFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/harrison/nexus/internal/models"
)

// planTask is the on-disk shape of one task in a plan file: a
// pre-decomposed unit of work the coordinator can execute directly via
// ExecuteExistingTasks, skipping the ITaskDecomposer capability entirely.
type planTask struct {
	ID               string   `yaml:"id"`
	Name             string   `yaml:"name"`
	Description      string   `yaml:"description"`
	Files            []string `yaml:"files"`
	TestCriteria     []string `yaml:"test_criteria"`
	EstimatedMinutes int      `yaml:"estimated_minutes"`
	Priority         int      `yaml:"priority"`
	DependsOn        []string `yaml:"depends_on"`
}

type planFile struct {
	Tasks []planTask `yaml:"tasks"`
}

// loadPlan reads a plan file and converts it into coordinator-ready
// tasks. A task without an explicit id is assigned one via
// models.NewTask; dependsOn references by the plan's own (possibly
// human-chosen) ids, resolved after every task has a final id.
func loadPlan(path string) ([]*models.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cli: read plan %s: %w", path, err)
	}
	var pf planFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("cli: parse plan %s: %w", path, err)
	}

	idMap := make(map[string]string, len(pf.Tasks)) // plan id -> resolved task id
	tasks := make([]*models.Task, 0, len(pf.Tasks))
	for _, pt := range pf.Tasks {
		t := models.NewTask(pt.Name)
		t.Description = pt.Description
		t.Files = pt.Files
		t.TestCriteria = pt.TestCriteria
		t.EstimatedMinutes = pt.EstimatedMinutes
		t.Priority = pt.Priority
		tasks = append(tasks, t)
		if pt.ID != "" {
			idMap[pt.ID] = t.ID
		}
	}

	for i, pt := range pf.Tasks {
		for _, dep := range pt.DependsOn {
			resolved, ok := idMap[dep]
			if !ok {
				return nil, fmt.Errorf("cli: plan %s: task %q depends on unknown id %q", path, pt.Name, dep)
			}
			tasks[i].DependsOn = append(tasks[i].DependsOn, resolved)
		}
	}
	return tasks, nil
}

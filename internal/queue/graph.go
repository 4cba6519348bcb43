package queue

import (
	"fmt"

	"github.com/harrison/nexus/internal/models"
)

// CalculateWaves partitions tasks into waves using Kahn's algorithm: wave 0
// is every task with no pending dependency, wave N+1 is every task whose
// dependencies are all satisfied by waves 0..N. Mutates each task's WaveID.
func CalculateWaves(tasks []*models.Task) ([][]*models.Task, error) {
	if cycle := DetectCycle(tasks); cycle != nil {
		return nil, &models.DependencyCycleError{Chain: cycle}
	}

	byID := make(map[string]*models.Task, len(tasks))
	remaining := make(map[string]int, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
		remaining[t.ID] = len(t.DependsOn)
	}

	var waves [][]*models.Task
	done := make(map[string]bool, len(tasks))
	waveID := 0
	for len(done) < len(tasks) {
		var wave []*models.Task
		for _, t := range tasks {
			if done[t.ID] {
				continue
			}
			ready := true
			for _, dep := range t.DependsOn {
				if !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, t)
			}
		}
		if len(wave) == 0 {
			// Should not happen: DetectCycle already ran. Defensive guard
			// against a dependency on an id that was never in tasks.
			return nil, fmt.Errorf("queue: unsatisfiable dependency set, %d tasks remain", len(tasks)-len(done))
		}
		for _, t := range wave {
			t.WaveID = waveID
			done[t.ID] = true
		}
		waves = append(waves, wave)
		waveID++
	}
	return waves, nil
}

// DetectCycle runs DFS with white/gray/black coloring over the dependency
// graph and returns the offending chain, or nil if the graph is acyclic.
func DetectCycle(tasks []*models.Task) []string {
	byID := make(map[string]*models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(tasks))
	var path []string

	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = gray
		path = append(path, id)
		t, ok := byID[id]
		if ok {
			for _, dep := range t.DependsOn {
				switch color[dep] {
				case gray:
					// found the back-edge; trim path to the cycle start
					start := 0
					for i, p := range path {
						if p == dep {
							start = i
							break
						}
					}
					cycle := append(append([]string{}, path[start:]...), dep)
					return cycle
				case white:
					if cyc := visit(dep); cyc != nil {
						return cyc
					}
				}
			}
		}
		color[id] = black
		path = path[:len(path)-1]
		return nil
	}

	for _, t := range tasks {
		if color[t.ID] == white {
			if cyc := visit(t.ID); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}

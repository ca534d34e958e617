package compose

import (
	"fmt"
	"sort"
	"strings"
)

// startOrder sorts services so that every service comes after its dependencies.
// Ties are broken by name so the order is stable across runs.
func startOrder(services map[string]Service) ([]string, error) {
	indegree := make(map[string]int, len(services))
	dependents := make(map[string][]string, len(services))
	for name, svc := range services {
		indegree[name] += 0
		for _, dep := range svc.DependsOn {
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var ready []string
	for name, n := range indegree {
		if n == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(services))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		next := dependents[name]
		sort.Strings(next)
		for _, d := range next {
			indegree[d]--
			if indegree[d] == 0 {
				ready = append(ready, d)
			}
		}
		sort.Strings(ready)
	}

	if len(order) != len(services) {
		var cycle []string
		for name, n := range indegree {
			if n > 0 {
				cycle = append(cycle, name)
			}
		}
		sort.Strings(cycle)
		return nil, fmt.Errorf("dependency cycle between services: %s", strings.Join(cycle, ", "))
	}
	return order, nil
}

// Package services implements the driving port interfaces.
// Services contain the audit business logic: building the workflow
// graph, running the normative and consistency pipelines, and routing
// every external call through the hybrid resolver.
//
// The consistency checker itself is pure; everything with side effects
// goes through driven ports.
package services

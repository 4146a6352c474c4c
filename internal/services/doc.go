// Package services defines the error taxonomy shared by pipeline stages and
// callers, plus context annotations that tie log records to jobs, stages,
// and requests.
package services

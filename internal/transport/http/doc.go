// Package http implements the HTTP handlers of the Linka API.
//
// Handlers are thin: they decode and validate the request, call a service
// and render the result. Service errors are returned to the shared
// errors.ErrorHandler, which turns them into RFC 7807 problem responses
// using the sentinel mappings from ServiceErrorMappings.
//
// # Routes
//
//	POST   /api/datasets                     upload a file (multipart, field "file")
//	GET    /api/datasets                     list loaded datasets
//	GET    /api/datasets/{id}                dataset metadata
//	DELETE /api/datasets/{id}                drop a dataset
//	GET    /api/datasets/{id}/classification column kinds (?force=a,b reclassifies)
//	POST   /api/datasets/{id}/transform      derived series for a numeric column
//	POST   /api/datasets/{id}/query          filter, sort and page rows
//	POST   /api/datasets/{id}/aggregate      group and reduce
//	POST   /api/datasets/{id}/chart          chart series
//	POST   /api/datasets/{id}/export         csv or xlsx download
//
//	POST   /api/dashboards                   save a dashboard snapshot
//	GET    /api/dashboards                   list dashboards
//	GET    /api/dashboards/{id}              load one
//	DELETE /api/dashboards/{id}              delete one
//
//	GET    /api/health, /api/health/ready, /api/health/live
//	GET    /api/version, /api/stats
package http

// Package main provides the end-to-end suite of sonarqube-verify, run as a
// binary against a real Podman socket.
//
// # Scenarios
//
// Single container: the server is started from the fixture image (or an
// already running one is used with -run=no), the suite waits for the readiness
// marker and then checks status, plugins, quality gates, quality profiles and
// that the default admin password is refused. The container is released in a
// DeferCleanup so a failed assertion never leaks it.
//
// Secret guard: two throw-away containers are started in parallel, one
// without the admin secret and one with the weak value. Both must log the
// start failure marker and never become ready. They are always removed.
//
// Composition: the server and PostgreSQL are started from the composition
// file, the server is restarted and the second start must log the "already
// configured" marker without running the setup again. The quality gate must be
// stored once in the database. The composition and its volumes are removed.
//
// # Usage
//
//	go build -o bin/e2e ./test/e2e
//	SONARQUBE_ADMIN_PASSWORD=... bin/e2e \
//	    -podman-socket unix:///run/user/1000/podman/podman.sock \
//	    -compose-file deploy/compose.yaml
//
// Both negative scenarios are skipped with -run=no since they start their own
// containers.
package main

// Package compose deploys a multi-service composition on Podman.
//
// Only the part of the compose format needed to run a server next to its
// database is supported:
//
//	name: tests
//	services:
//	  db:
//	    image: postgres:13
//	    environment: {POSTGRES_PASSWORD: "${DB_PASSWORD:-sonar}"}
//	    volumes: ["pg_data:/var/lib/postgresql/data"]
//	  sonarqube:
//	    image: lequal/sonarqube:latest
//	    container_name: lequalsonarqube-compose
//	    ports: ["9000:9000"]
//	    depends_on: [db]
//	volumes:
//	  pg_data: {}
//
// Services share the "<project>_default" network and reach each other by
// service name. Volumes are named "<project>_<volume>" unless the top-level
// entry sets a name. Bind mounts, host address bindings and build sections
// are rejected.
package compose

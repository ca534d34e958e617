package services_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lequal/sonarqube-verify/internal/config"
	"github.com/lequal/sonarqube-verify/internal/services"
	"github.com/lequal/sonarqube-verify/pkg/compose"
	srvErrors "github.com/lequal/sonarqube-verify/pkg/errors"
	"github.com/lequal/sonarqube-verify/pkg/expectations"
	"github.com/lequal/sonarqube-verify/pkg/podman"
)

const composeFile = `
name: tests
services:
  sonarqube:
    image: lequal/sonarqube:latest
    container_name: lequalsonarqube-compose
    depends_on: [postgresql]
    environment:
      SONARQUBE_ADMIN_PASSWORD: ${SONARQUBE_ADMIN_PASSWORD}
    ports: ["9000:9000"]
    volumes:
      - test_volume_compose_sonarqube_data:/opt/sonarqube/data
  postgresql:
    image: postgres:12.1
    volumes:
      - test_volume_compose_postgresql:/var/lib/postgresql
volumes:
  test_volume_compose_sonarqube_data:
  test_volume_compose_postgresql:
`

type fakeHosts struct{ err error }

func (f fakeHosts) CheckMaxMapCount() error { return f.err }

type fakeDatastore struct {
	counts map[string]int
	closed bool
}

func (f *fakeDatastore) CountQualityGates(_ context.Context, name string) (int, error) {
	return f.counts[name], nil
}

func (f *fakeDatastore) Close() error {
	f.closed = true
	return nil
}

var _ = Describe("ComposeService", func() {
	var (
		ctx         context.Context
		cfg         *config.Configuration
		table       *expectations.Table
		runtime     *FakeRuntime
		project     *compose.Project
		hosts       fakeHosts
		db          *fakeDatastore
		firstStart  string
		secondStart string
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		table, err = expectations.Parse([]byte(fixture))
		Expect(err).NotTo(HaveOccurred())

		cfg = config.NewConfigurationWithOptionsAndDefaults()
		cfg.Service.AdminPassword = "adminpassword"
		cfg.Compose.Service = "sonarqube"
		cfg.Readiness.Interval = 10 * time.Millisecond
		cfg.Readiness.Timeout = 500 * time.Millisecond

		hosts = fakeHosts{}
		db = &fakeDatastore{counts: map[string]int{"CNES": 1}}
		firstStart = "CNES quality gate created\nCNES SonarQube: ready!\n"
		secondStart = "already been filled\nCNES SonarQube: ready!\n"

		runtime = NewFakeRuntime(func(_ *podman.ContainerConfig, q podman.LogQuery) string {
			if q.Since.IsZero() {
				return firstStart
			}
			return secondStart
		})

		file, err := compose.Parse([]byte(composeFile), map[string]string{"SONARQUBE_ADMIN_PASSWORD": "adminpassword"})
		Expect(err).NotTo(HaveOccurred())
		project, err = compose.NewProject(file, "", runtime)
		Expect(err).NotTo(HaveOccurred())
	})

	newService := func() *services.ComposeService {
		return services.NewComposeService(cfg, runtime, project, table, hosts).
			WithDatastoreOpener(func(context.Context, string) (services.QualityGateCounter, error) {
				return db, nil
			})
	}

	It("should pass when the restart skips the configuration", func() {
		report, err := newService().VerifyNoReconfiguration(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(report.Err()).NotTo(HaveOccurred())
		names := []string{}
		for _, r := range report.Results {
			names = append(names, r.Name)
		}
		Expect(names).To(Equal([]string{
			services.CheckFirstStart,
			services.CheckSetupRan,
			services.CheckRestart,
			services.CheckNoReconfigure,
			services.CheckStoredGatesOnce,
		}))
		Expect(runtime.CallsWithPrefix("restart")).To(ConsistOf("restart lequalsonarqube-compose"))
		Expect(db.closed).To(BeTrue())
	})

	It("should remove the composition and every volume", func() {
		_, err := newService().VerifyNoReconfiguration(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(runtime.CallsWithPrefix("rm")).To(Equal([]string{
			"rm lequalsonarqube-compose",
			"rm tests-postgresql-1",
		}))
		Expect(runtime.CallsWithPrefix("volume rm")).To(ConsistOf(
			"volume rm tests_test_volume_compose_sonarqube_data",
			"volume rm tests_test_volume_compose_postgresql",
		))
		Expect(runtime.Calls()).To(ContainElement("network rm tests_default"))
	})

	// Given a second start logging the setup line again
	// When the restart is verified
	// Then the no-reconfiguration check fails and the composition is still removed
	It("should fail when the setup runs again", func() {
		secondStart = "CNES quality gate created\nalready been filled\nCNES SonarQube: ready!\n"

		report, err := newService().VerifyNoReconfiguration(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(report.Passed()).To(BeFalse())
		Expect(report.Err()).To(MatchError(ContainSubstring("one-time setup ran again")))
		Expect(runtime.CallsWithPrefix("volume rm")).To(HaveLen(2))
	})

	// Given a first start that never logs the setup marker
	// When the restart is verified
	// Then the setup check fails, so a wrong marker cannot pass unnoticed
	It("should fail when the first start does not log the setup marker", func() {
		firstStart = "CNES SonarQube: ready!\n"

		report, err := newService().VerifyNoReconfiguration(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(report.Passed()).To(BeFalse())
		Expect(report.Results[1].Name).To(Equal(services.CheckSetupRan))
		Expect(report.Results[1].Passed).To(BeFalse())
		Expect(report.Err()).To(MatchError(ContainSubstring(`setup marker "CNES quality gate created" not logged on first start`)))
		Expect(runtime.CallsWithPrefix("restart")).To(HaveLen(1))
	})

	It("should fail when the already configured marker is missing", func() {
		secondStart = "CNES SonarQube: ready!\n"

		report, err := newService().VerifyNoReconfiguration(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(report.Err()).To(MatchError(ContainSubstring(`"already been filled" missing`)))
	})

	It("should fail when the gate was stored twice", func() {
		db.counts["CNES"] = 2

		report, err := newService().VerifyNoReconfiguration(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(report.Err()).To(MatchError(ContainSubstring(`quality gate "CNES" stored 2 times`)))
	})

	It("should skip the database check without a dsn", func() {
		cfg.Compose.DatastoreDSN = ""

		report, err := newService().VerifyNoReconfiguration(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(report.Results).To(HaveLen(4))
	})

	It("should not touch the runtime when the host is not ready", func() {
		hosts = fakeHosts{err: srvErrors.NewHostPreconditionError("vm.max_map_count", "65530", "sysctl -w vm.max_map_count=262144")}

		report, err := newService().VerifyNoReconfiguration(ctx)

		Expect(srvErrors.IsHostPreconditionError(err)).To(BeTrue())
		Expect(report).To(BeNil())
		Expect(runtime.Calls()).To(BeEmpty())
	})

	It("should tear down when a service fails to start", func() {
		runtime.StartErr = errors.New("image not found")

		_, err := newService().VerifyNoReconfiguration(ctx)

		Expect(err).To(MatchError(ContainSubstring("image not found")))
		Expect(runtime.CallsWithPrefix("volume rm")).To(HaveLen(2))
		Expect(runtime.Calls()).To(ContainElement("network rm tests_default"))
	})
})

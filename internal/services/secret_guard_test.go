package services_test

import (
	"context"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lequal/sonarqube-verify/internal/services"
	"github.com/lequal/sonarqube-verify/pkg/expectations"
	"github.com/lequal/sonarqube-verify/pkg/podman"
	"github.com/lequal/sonarqube-verify/pkg/scheduler"
)

var _ = Describe("SecretGuardService", func() {
	var (
		ctx     context.Context
		table   *expectations.Table
		sched   *scheduler.Scheduler[string]
		runtime *FakeRuntime
	)

	// guarded refuses to start unless a strong secret is set
	guarded := func(cfg *podman.ContainerConfig, _ podman.LogQuery) string {
		secret, ok := cfg.EnvVars()["SONARQUBE_ADMIN_PASSWORD"]
		if !ok || secret == "admin" {
			return "Error: Unable to start CNES SonarQube.\n"
		}
		return "CNES SonarQube: ready!\n"
	}

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		table, err = expectations.Parse([]byte(fixture))
		Expect(err).NotTo(HaveOccurred())
		sched = scheduler.NewScheduler[string](2)
	})

	AfterEach(func() {
		sched.Close()
	})

	newService := func() *services.SecretGuardService {
		return services.NewSecretGuardService(runtime, table, "", 200*time.Millisecond, 10*time.Millisecond, sched)
	}

	It("should pass when the server refuses both secrets", func() {
		runtime = NewFakeRuntime(guarded)

		report := newService().Run(ctx)

		Expect(report.Err()).NotTo(HaveOccurred())
		Expect(report.Results).To(HaveLen(2))
		Expect(report.Results[0].Name).To(Equal("refuse start: secret unset"))
		Expect(report.Results[1].Name).To(Equal("refuse start: weak secret"))
	})

	It("should start uniquely named containers and always remove them", func() {
		runtime = NewFakeRuntime(guarded)

		newService().Run(ctx)

		starts := runtime.CallsWithPrefix("start")
		Expect(starts).To(HaveLen(2))
		Expect(starts[0]).NotTo(Equal(starts[1]))
		for _, s := range starts {
			Expect(s).To(HavePrefix("start sonarqube-verify-secret-"))
		}
		Expect(runtime.CallsWithPrefix("rm")).To(HaveLen(2))
	})

	It("should pass the weak password, and nothing else, to the second case", func() {
		runtime = NewFakeRuntime(guarded)
		var (
			mu   sync.Mutex
			seen []map[string]string
		)
		runtime.LogsFor = func(cfg *podman.ContainerConfig, q podman.LogQuery) string {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, cfg.EnvVars())
			return guarded(cfg, q)
		}

		newService().Run(ctx)

		Expect(seen).To(ContainElement(HaveKeyWithValue("SONARQUBE_ADMIN_PASSWORD", "admin")))
		Expect(seen).To(ContainElement(Not(HaveKey("SONARQUBE_ADMIN_PASSWORD"))))
	})

	It("should fail when the server becomes ready anyway", func() {
		runtime = NewFakeRuntime(func(*podman.ContainerConfig, podman.LogQuery) string {
			return "CNES SonarQube: ready!\n"
		})

		report := newService().Run(ctx)

		Expect(report.Passed()).To(BeFalse())
		Expect(report.Err()).To(MatchError(ContainSubstring("server became ready")))
		Expect(runtime.CallsWithPrefix("rm")).To(HaveLen(2))
	})

	// Given a caller that gives up while the containers are observed
	// When the run context is cancelled
	// Then the cases stop before the startup window ends and the containers are removed
	It("should stop the cases when the caller context is cancelled", func() {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		runtime = NewFakeRuntime(func(*podman.ContainerConfig, podman.LogQuery) string {
			cancel()
			return "starting\n"
		})
		svc := services.NewSecretGuardService(runtime, table, "", time.Minute, 10*time.Millisecond, sched)

		report := svc.Run(runCtx)

		Expect(report.Passed()).To(BeFalse())
		Eventually(func() []string { return runtime.CallsWithPrefix("rm") }).
			WithTimeout(2 * time.Second).
			Should(HaveLen(2))
	})

	It("should fail when the failure marker is never logged", func() {
		runtime = NewFakeRuntime(func(*podman.ContainerConfig, podman.LogQuery) string {
			return "starting\n"
		})

		report := newService().Run(ctx)

		Expect(report.Passed()).To(BeFalse())
		Expect(strings.Count(report.Err().Error(), "not logged within the startup window")).To(Equal(2))
	})
})

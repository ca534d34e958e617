package services_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lequal/sonarqube-verify/internal/config"
	"github.com/lequal/sonarqube-verify/internal/models"
	"github.com/lequal/sonarqube-verify/internal/services"
	srvErrors "github.com/lequal/sonarqube-verify/pkg/errors"
	"github.com/lequal/sonarqube-verify/pkg/expectations"
	"github.com/lequal/sonarqube-verify/pkg/podman"
	"github.com/lequal/sonarqube-verify/pkg/sonarqube"
	"github.com/lequal/sonarqube-verify/pkg/sonarqube/sonarqubetest"
)

var _ = Describe("VerifierService", func() {
	var (
		ctx      context.Context
		cfg      *config.Configuration
		table    *expectations.Table
		runtime  *FakeRuntime
		logs     string
		verifier *services.VerifierService
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		table, err = expectations.Parse([]byte(fixture))
		Expect(err).NotTo(HaveOccurred())

		cfg = config.NewConfigurationWithOptionsAndDefaults()
		cfg.Service.AdminPassword = "adminpassword"
		cfg.Service.URL = "http://localhost:9100"
		cfg.Readiness.Interval = 10 * time.Millisecond
		cfg.Readiness.Timeout = 500 * time.Millisecond

		logs = "starting\nCNES SonarQube: ready!\n"
		runtime = NewFakeRuntime(func(*podman.ContainerConfig, podman.LogQuery) string { return logs })
	})

	JustBeforeEach(func() {
		verifier = services.NewVerifierService(cfg, runtime, table)
	})

	Context("when the run manages the container", func() {
		It("should start the image with the admin secret and publish the url port", func() {
			handle, release, err := verifier.Acquire(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(handle.Owned).To(BeTrue())
			c, ok := runtime.Container("lequalsonarqube")
			Expect(ok).To(BeTrue())
			Expect(c.Image()).To(Equal("lequal/sonarqube:latest"))
			Expect(c.EnvVars()).To(HaveKeyWithValue("SONARQUBE_ADMIN_PASSWORD", "adminpassword"))
			Expect(c.Ports()).To(HaveKeyWithValue(9100, 9000))

			Expect(release(ctx)).To(Succeed())
			Expect(runtime.Calls()).To(ContainElements("stop lequalsonarqube", "rm lequalsonarqube"))
		})

		It("should use the image override", func() {
			cfg.Service.Image = "lequal/sonarqube:8.9"

			_, _, err := verifier.Acquire(ctx)

			Expect(err).NotTo(HaveOccurred())
			c, _ := runtime.Container("lequalsonarqube")
			Expect(c.Image()).To(Equal("lequal/sonarqube:8.9"))
		})

		It("should refuse to take over a container with the same name", func() {
			runtime.Preload(podman.NewContainerConfig("lequalsonarqube", "other"))

			_, _, err := verifier.Acquire(ctx)

			Expect(err).To(MatchError(ContainSubstring("already exists")))
			Expect(runtime.CallsWithPrefix("rm")).To(BeEmpty())
		})

		// Given fn failing
		// When With returns
		// Then the container is removed anyway
		It("should release when fn fails", func() {
			err := verifier.With(ctx, func(context.Context, *models.ServiceHandle) error {
				return errors.New("assertion failed")
			})

			Expect(err).To(MatchError("assertion failed"))
			Expect(runtime.CallsWithPrefix("rm")).To(ConsistOf("rm lequalsonarqube"))
		})

		It("should release when fn panics", func() {
			Expect(func() {
				_ = verifier.With(ctx, func(context.Context, *models.ServiceHandle) error {
					panic("boom")
				})
			}).To(PanicWith("boom"))

			Expect(runtime.CallsWithPrefix("rm")).To(ConsistOf("rm lequalsonarqube"))
		})

		It("should release when the server reports a start failure", func() {
			logs = "Error: Unable to start CNES SonarQube.\n"
			called := false

			err := verifier.With(ctx, func(context.Context, *models.ServiceHandle) error {
				called = true
				return nil
			})

			Expect(srvErrors.IsServiceFailedError(err)).To(BeTrue())
			Expect(called).To(BeFalse())
			Expect(runtime.CallsWithPrefix("rm")).To(ConsistOf("rm lequalsonarqube"))
		})

		It("should time out with a distinct error", func() {
			logs = "still starting\n"

			err := verifier.With(ctx, func(context.Context, *models.ServiceHandle) error { return nil })

			Expect(srvErrors.IsReadinessTimeoutError(err)).To(BeTrue())
			Expect(runtime.CallsWithPrefix("rm")).To(ConsistOf("rm lequalsonarqube"))
		})

		It("should keep the container when asked to", func() {
			cfg.KeepContainers = true

			err := verifier.With(ctx, func(context.Context, *models.ServiceHandle) error { return nil })

			Expect(err).NotTo(HaveOccurred())
			Expect(runtime.CallsWithPrefix("rm")).To(BeEmpty())
		})
	})

	Context("when the container is supplied externally", func() {
		BeforeEach(func() {
			cfg.Run = false
		})

		It("should attach without starting nor destroying it", func() {
			runtime.Preload(podman.NewContainerConfig("lequalsonarqube", "lequal/sonarqube:latest"))

			err := verifier.With(ctx, func(_ context.Context, h *models.ServiceHandle) error {
				Expect(h.Owned).To(BeFalse())
				return errors.New("assertion failed")
			})

			Expect(err).To(HaveOccurred())
			Expect(runtime.CallsWithPrefix("start")).To(BeEmpty())
			Expect(runtime.CallsWithPrefix("stop")).To(BeEmpty())
			Expect(runtime.CallsWithPrefix("rm")).To(BeEmpty())
		})

		It("should fail when the container does not exist", func() {
			_, _, err := verifier.Acquire(ctx)

			Expect(srvErrors.IsResourceNotFoundError(err)).To(BeTrue())
		})
	})

	Context("VerifyConfiguration", func() {
		var server *sonarqubetest.Server

		BeforeEach(func() {
			server = sonarqubetest.NewServer("adminpassword")
			server.SetPlugins(sonarqube.Plugin{Name: "Checkstyle", Version: "8.40"})
			server.SetQualityGates(sonarqube.QualityGate{Name: "CNES", IsDefault: true})
			server.SetQualityProfiles(sonarqube.QualityProfile{Name: "RNC A", Language: "java"})
			cfg.Service.URL = server.URL
			cfg.Run = false
			runtime.Preload(podman.NewContainerConfig("lequalsonarqube", "lequal/sonarqube:latest"))
		})

		AfterEach(func() {
			server.Close()
		})

		It("should pass against a conforming server", func() {
			report, err := verifier.VerifyConfiguration(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(report.Err()).NotTo(HaveOccurred())
			Expect(report.Results).To(HaveLen(5))
		})

		It("should report a wrong plugin version", func() {
			server.SetPlugins(sonarqube.Plugin{Name: "Checkstyle", Version: "8.39"})

			report, err := verifier.VerifyConfiguration(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(report.Passed()).To(BeFalse())
			Expect(report.Err()).To(MatchError(ContainSubstring("Checkstyle")))
		})
	})
})

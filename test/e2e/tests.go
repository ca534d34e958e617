package main

import (
	"context"
	"net/http"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lequal/sonarqube-verify/internal/services"
	"github.com/lequal/sonarqube-verify/pkg/compose"
	"github.com/lequal/sonarqube-verify/pkg/expectations"
	"github.com/lequal/sonarqube-verify/pkg/hostcheck"
	"github.com/lequal/sonarqube-verify/pkg/podman"
	"github.com/lequal/sonarqube-verify/pkg/scheduler"
	"github.com/lequal/sonarqube-verify/pkg/sonarqube"
	"github.com/lequal/sonarqube-verify/pkg/verify"
)

var _ = Describe("CNES SonarQube", Ordered, func() {
	var (
		table   *expectations.Table
		runtime *podman.Runner
	)

	BeforeAll(func() {
		var err error
		table, err = expectations.Resolve(cfg.Fixture.Name, cfg.Fixture.Path)
		Expect(err).ToNot(HaveOccurred(), "failed to load fixture")

		runtime, err = podman.NewRunner(cfg.Podman.Socket)
		Expect(err).ToNot(HaveOccurred(), "failed to connect to podman")
	})

	Context("single container", Ordered, func() {
		var (
			runner *verify.Runner
			api    verify.AdminAPI
		)

		BeforeAll(func(ctx SpecContext) {
			verifier := services.NewVerifierService(cfg.Configuration, runtime, table)

			handle, release, err := verifier.Acquire(ctx)
			Expect(err).ToNot(HaveOccurred(), "failed to acquire the server")
			DeferCleanup(func() error {
				GinkgoWriter.Printf("Releasing %s (owned=%t)...\n", handle.Name, handle.Owned)
				return release(context.Background())
			})

			GinkgoWriter.Printf("Waiting for %s to be up...\n", handle.Name)
			Expect(verifier.WaitReady(ctx, handle)).To(Succeed())

			api = verifier.AdminAPI(handle)
			runner = verify.NewRunner(table, api)
		}, NodeTimeout(cfg.Readiness.Timeout+cfg.Readiness.Interval))

		// Given a started server
		// When its status is read
		// Then it reports UP
		It("should be up", func(ctx SpecContext) {
			Expect(runner.CheckStatus(ctx)).To(Succeed())
		})

		It("should have every plugin with its exact version", func(ctx SpecContext) {
			Expect(runner.CheckPlugins(ctx)).To(Succeed())
		})

		It("should have the CNES quality gate as default", func(ctx SpecContext) {
			Expect(runner.CheckQualityGates(ctx)).To(Succeed())
		})

		It("should have the RNC quality profiles of every language", func(ctx SpecContext) {
			Expect(runner.CheckQualityProfiles(ctx)).To(Succeed())
		})

		// Given the admin account with its default password
		// When logging in
		// Then the server answers 401, neither a success nor a crash
		It("should refuse the default admin password", func(ctx SpecContext) {
			creds := table.Credentials()

			code, err := api.Login(ctx, creds.WeakLogin, creds.WeakPassword)

			Expect(err).ToNot(HaveOccurred())
			Expect(code).To(Equal(http.StatusUnauthorized))
		})

		It("should accept the configured admin password", func(ctx SpecContext) {
			client := sonarqube.DefaultClient(cfg.Service.URL, cfg.Service.AdminLogin, cfg.Service.AdminPassword)

			code, err := client.Login(ctx, cfg.Service.AdminLogin, cfg.Service.AdminPassword)

			Expect(err).ToNot(HaveOccurred())
			Expect(code).To(Equal(http.StatusOK))
		})
	})

	Context("without a usable admin password", func() {
		BeforeEach(func() {
			if cfg.SkipSecretGuard || !cfg.Run.Enabled() {
				Skip("secret guard scenario disabled")
			}
		})

		// Given the image started without the admin secret, then with the weak one
		// When its logs are observed during the startup window
		// Then it logs the failure marker and never becomes ready
		It("should refuse to start", func(ctx SpecContext) {
			sched := scheduler.NewScheduler[string](2)
			DeferCleanup(sched.Close)

			guard := services.NewSecretGuardService(runtime, table, cfg.Service.Image,
				cfg.Readiness.StartupWindow, cfg.Readiness.Interval, sched)
			report := guard.Run(ctx)

			Expect(report.Err()).ToNot(HaveOccurred())
		}, NodeTimeout(2*cfg.Readiness.StartupWindow+cfg.Readiness.Interval))
	})

	Context("composition with an external database", func() {
		BeforeEach(func() {
			if cfg.SkipCompose || !cfg.Run.Enabled() {
				Skip("restart scenario disabled")
			}
		})

		// Given a server configured once against PostgreSQL
		// When the server container is restarted with its volumes intact
		// Then it logs that it is already configured and does not run the setup again
		It("should not configure the server twice", func(ctx SpecContext) {
			env := map[string]string{}
			for _, kv := range os.Environ() {
				if k, v, ok := strings.Cut(kv, "="); ok {
					env[k] = v
				}
			}
			env[table.Image().AdminPasswordEnv] = cfg.Service.AdminPassword

			file, err := compose.Load(cfg.Compose.File, env)
			Expect(err).ToNot(HaveOccurred(), "failed to load composition")
			project, err := compose.NewProject(file, cfg.Compose.Project, runtime)
			Expect(err).ToNot(HaveOccurred())

			svc := services.NewComposeService(cfg.Configuration, runtime, project, table, hostcheck.NewChecker())
			report, err := svc.VerifyNoReconfiguration(ctx)

			Expect(err).ToNot(HaveOccurred())
			Expect(report.Err()).ToNot(HaveOccurred())
		}, NodeTimeout(3*cfg.Readiness.Timeout))
	})
})

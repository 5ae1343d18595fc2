package config_test

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/edge-router/config"
	"github.com/angeloszaimis/edge-router/internal/strategy"
)

func boolPtr(b bool) *bool { return &b }

func webConfig() *config.RawConfig {
	return &config.RawConfig{
		Global: config.GlobalConfig{Port: 8080},
		Servers: []config.ServerRule{
			{ServerName: []string{"a.com", "WWW.A.com."}, Upstream: "web", TLS: boolPtr(false)},
		},
		Upstreams: []config.UpstreamDefinition{
			{Name: "web", Servers: []string{"10.0.0.1:80", "10.0.0.2:80"}},
		},
	}
}

var _ = Describe("Resolve", func() {
	var tempDir string

	touch := func(name string) string {
		path := filepath.Join(tempDir, name)
		Expect(os.WriteFile(path, []byte("-----BEGIN-----"), 0600)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "resolve-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	Context("with a valid configuration", func() {
		It("should map every hostname to its upstream's backends", func() {
			raw, err := parse(sampleConfig)
			Expect(err).NotTo(HaveOccurred())

			snap, err := config.Resolve(raw)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Routes.Len()).To(Equal(3))
			Expect(snap.Upstreams).To(Equal(2))

			for _, rule := range raw.Servers {
				for _, host := range rule.ServerName {
					entry, ok := snap.Routes.Lookup(host)
					Expect(ok).To(BeTrue(), host)
					Expect(entry.Upstream()).To(Equal(rule.Upstream))
					Expect(entry.TLS).To(Equal(rule.UseTLS()))
				}
			}

			web, _ := snap.Routes.Lookup("acme.com")
			Expect(web.Balancer.Addresses()).To(Equal([]string{"127.0.0.1:3001", "127.0.0.1:3002"}))
			api, _ := snap.Routes.Lookup("api.acme.com")
			Expect(api.Balancer.Addresses()).To(Equal([]string{"127.0.0.1:3003", "127.0.0.1:3004"}))
			Expect(api.Balancer.Policy()).To(Equal(strategy.Random))
		})

		It("should share one load balancer per upstream", func() {
			snap, err := config.Resolve(webConfig())
			Expect(err).NotTo(HaveOccurred())

			a, _ := snap.Routes.Lookup("a.com")
			www, _ := snap.Routes.Lookup("www.a.com")
			Expect(a.Balancer).To(BeIdenticalTo(www.Balancer))
		})

		It("should normalize hostnames to lowercase", func() {
			snap, err := config.Resolve(webConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Routes.Hosts()).To(Equal([]string{"a.com", "www.a.com"}))
		})

		It("should build fresh load balancers on every resolution", func() {
			first, err := config.Resolve(webConfig())
			Expect(err).NotTo(HaveOccurred())
			second, err := config.Resolve(webConfig())
			Expect(err).NotTo(HaveOccurred())

			a, _ := first.Routes.Lookup("a.com")
			b, _ := second.Routes.Lookup("a.com")
			Expect(a.Balancer).NotTo(BeIdenticalTo(b.Balancer))
		})

		It("should bind a repeated hostname to the last rule", func() {
			raw := webConfig()
			raw.Upstreams = append(raw.Upstreams, config.UpstreamDefinition{Name: "api", Servers: []string{"10.0.1.1:80"}})
			raw.Servers = append(raw.Servers, config.ServerRule{ServerName: []string{"a.com"}, Upstream: "api"})

			snap, err := config.Resolve(raw)
			Expect(err).NotTo(HaveOccurred())
			a, _ := snap.Routes.Lookup("a.com")
			Expect(a.Upstream()).To(Equal("api"))
			www, _ := snap.Routes.Lookup("www.a.com")
			Expect(www.Upstream()).To(Equal("web"))
		})

		It("should not count an upstream whose hostnames were all taken over", func() {
			raw := webConfig()
			raw.Upstreams = append(raw.Upstreams, config.UpstreamDefinition{Name: "api", Servers: []string{"10.0.1.1:80"}})
			raw.Servers = append(raw.Servers, config.ServerRule{ServerName: []string{"a.com", "www.a.com"}, Upstream: "api"})

			snap, err := config.Resolve(raw)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Upstreams).To(Equal(1))
			_, ok := snap.Routes.Balancer("web")
			Expect(ok).To(BeFalse())
		})

		It("should skip load balancers for unreferenced upstreams", func() {
			raw := webConfig()
			raw.Upstreams = append(raw.Upstreams, config.UpstreamDefinition{Name: "idle", Servers: []string{"10.9.9.9:80"}})

			snap, err := config.Resolve(raw)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Upstreams).To(Equal(1))
			_, ok := snap.Routes.Balancer("idle")
			Expect(ok).To(BeFalse())
		})

		It("should fill defaults for programmatic configurations", func() {
			snap, err := config.Resolve(webConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Global.AdminAddress).To(Equal(config.DefaultAdminAddress))
			Expect(snap.Global.HealthCheck.Interval).To(Equal(config.DefaultHealthCheckInterval))
			Expect(snap.Global.HealthCheck.Frequency).To(Equal(config.DefaultProbeFrequency))
			Expect(snap.Global.HealthCheck.Concurrency).To(Equal(config.DefaultProbeConcurrency))
		})

		It("should accept existing TLS files", func() {
			raw := webConfig()
			raw.Global.TLS = &config.TLSConfig{Cert: touch("server.crt"), Key: touch("server.key"), CA: touch("ca.crt")}

			snap, err := config.Resolve(raw)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Global.TLS).NotTo(BeNil())
			Expect(snap.Global.TLS.CA).To(Equal(filepath.Join(tempDir, "ca.crt")))
		})

		It("should keep the upstream CA for TLS routes", func() {
			raw := webConfig()
			raw.Servers[0].TLS = boolPtr(true)
			raw.Servers[0].UpstreamCA = touch("upstream-ca.crt")

			snap, err := config.Resolve(raw)
			Expect(err).NotTo(HaveOccurred())
			a, _ := snap.Routes.Lookup("a.com")
			Expect(a.TLS).To(BeTrue())
			Expect(a.CAFile).To(Equal(raw.Servers[0].UpstreamCA))
		})
	})

	Context("with an undeclared upstream", func() {
		It("should fail with MissingUpstream and no route table", func() {
			raw := webConfig()
			raw.Servers = append(raw.Servers, config.ServerRule{ServerName: []string{"b.com"}, Upstream: "ghost"})

			snap, err := config.Resolve(raw)
			Expect(snap).To(BeNil())
			Expect(err).To(MatchError(config.ErrMissingUpstream))

			var verr *config.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Subject).To(Equal("ghost"))
		})
	})

	Context("with an empty backend list", func() {
		It("should fail with EmptyBackendList", func() {
			raw := webConfig()
			raw.Upstreams[0].Servers = nil

			snap, err := config.Resolve(raw)
			Expect(snap).To(BeNil())
			Expect(err).To(MatchError(config.ErrEmptyBackendList))
			Expect(err.Error()).To(ContainSubstring("web"))
		})

		It("should fail even when the upstream is unreferenced", func() {
			raw := webConfig()
			raw.Upstreams = append(raw.Upstreams, config.UpstreamDefinition{Name: "idle"})

			_, err := config.Resolve(raw)
			Expect(err).To(MatchError(config.ErrEmptyBackendList))
		})
	})

	Context("with missing TLS files", func() {
		DescribeTable("fails before building any route",
			func(mutate func(*config.TLSConfig), want error) {
				raw := webConfig()
				raw.Servers = append(raw.Servers, config.ServerRule{ServerName: []string{"b.com"}, Upstream: "ghost"})
				tlsCfg := &config.TLSConfig{Cert: touch("server.crt"), Key: touch("server.key")}
				mutate(tlsCfg)
				raw.Global.TLS = tlsCfg

				snap, err := config.Resolve(raw)
				Expect(snap).To(BeNil())
				Expect(err).To(MatchError(want))
			},
			Entry("cert", func(t *config.TLSConfig) { t.Cert = "non_existent.cert" }, config.ErrMissingCertFile),
			Entry("key", func(t *config.TLSConfig) { t.Key = "non_existent.key" }, config.ErrMissingKeyFile),
			Entry("ca", func(t *config.TLSConfig) { t.CA = "non_existent.ca" }, config.ErrMissingCaFile),
		)

		It("should check the cert before the key", func() {
			raw := webConfig()
			raw.Global.TLS = &config.TLSConfig{Cert: "missing.crt", Key: "missing.key"}

			_, err := config.Resolve(raw)
			Expect(err).To(MatchError(config.ErrMissingCertFile))
			Expect(err.Error()).To(ContainSubstring("missing.crt"))
		})

		It("should check the upstream CA of TLS routes", func() {
			raw := webConfig()
			raw.Servers[0].TLS = boolPtr(true)
			raw.Servers[0].UpstreamCA = filepath.Join(tempDir, "nope.crt")

			_, err := config.Resolve(raw)
			Expect(err).To(MatchError(config.ErrMissingCaFile))
		})

		It("should ignore the upstream CA of plaintext routes", func() {
			raw := webConfig()
			raw.Servers[0].UpstreamCA = filepath.Join(tempDir, "nope.crt")

			_, err := config.Resolve(raw)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	It("should reject an unknown policy", func() {
		raw := webConfig()
		raw.Upstreams[0].Policy = "sticky"

		_, err := config.Resolve(raw)
		Expect(err).To(MatchError(config.ErrUnknownPolicy))
	})
})

var _ = Describe("LoadSnapshot", func() {
	It("should load and resolve a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "config.yaml")
		Expect(os.WriteFile(path, []byte(sampleConfig), 0644)).To(Succeed())

		snap, err := config.LoadSnapshot(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.Routes.Len()).To(BeNumerically(">", 0))
	})

	It("should surface read errors", func() {
		_, err := config.LoadSnapshot(filepath.Join(GinkgoT().TempDir(), "missing.yaml"))
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
	})
})

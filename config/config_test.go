package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/edge-router/config"
)

const sampleConfig = `
global:
  port: 8080

servers:
  - server_name: ["acme.com", "www.acme.com"]
    upstream: web_servers
  - server_name: ["api.acme.com"]
    upstream: api_servers
    tls: true

upstreams:
  - name: web_servers
    servers: ["127.0.0.1:3001", "127.0.0.1:3002"]
  - name: api_servers
    servers: ["127.0.0.1:3003", "127.0.0.1:3004"]
    policy: random
`

func parse(doc string) (*config.RawConfig, error) {
	return config.Parse(strings.NewReader(doc))
}

var _ = Describe("Config", func() {
	Describe("Parse", func() {
		Context("with a valid document", func() {
			var raw *config.RawConfig

			BeforeEach(func() {
				var err error
				raw, err = parse(sampleConfig)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should parse global settings", func() {
				Expect(raw.Global.Port).To(Equal(uint16(8080)))
				Expect(raw.Global.TLS).To(BeNil())
			})

			It("should parse server rules", func() {
				Expect(raw.Servers).To(HaveLen(2))
				Expect(raw.Servers[0].ServerName).To(Equal([]string{"acme.com", "www.acme.com"}))
				Expect(raw.Servers[0].Upstream).To(Equal("web_servers"))
				Expect(raw.Servers[0].TLS).To(BeNil())
				Expect(raw.Servers[0].UseTLS()).To(BeFalse())
				Expect(raw.Servers[1].UseTLS()).To(BeTrue())
			})

			It("should parse upstreams", func() {
				Expect(raw.Upstreams).To(HaveLen(2))
				Expect(raw.Upstreams[0].Name).To(Equal("web_servers"))
				Expect(raw.Upstreams[0].Servers).To(Equal([]string{"127.0.0.1:3001", "127.0.0.1:3002"}))
				Expect(raw.Upstreams[1].Policy).To(Equal("random"))
			})

			It("should apply defaults", func() {
				Expect(raw.Global.AdminAddress).To(Equal(config.DefaultAdminAddress))
				Expect(raw.Global.LogLevel).To(Equal(config.LogLevelInfo))
				Expect(raw.Global.Environment).To(Equal(config.EnvDev))
				Expect(raw.Global.HealthCheck.Interval).To(Equal(time.Second))
				Expect(raw.Global.HealthCheck.Frequency).To(Equal(10 * time.Second))
				Expect(raw.Global.HealthCheck.Timeout).To(Equal(time.Second))
				Expect(raw.Global.HealthCheck.Concurrency).To(Equal(config.DefaultProbeConcurrency))
			})
		})

		It("should parse TLS and health check settings", func() {
			raw, err := parse(`
global:
  port: 443
  log_level: debug
  environment: prod
  tls:
    cert: /etc/certs/server.crt
    key: /etc/certs/server.key
    ca: /etc/certs/ca.crt
  health_check:
    interval: 500ms
    frequency: 5s
    timeout: 250ms
    concurrency: 4
servers: []
upstreams: []
`)
			Expect(err).NotTo(HaveOccurred())
			Expect(raw.Global.TLS).To(Equal(&config.TLSConfig{
				Cert: "/etc/certs/server.crt",
				Key:  "/etc/certs/server.key",
				CA:   "/etc/certs/ca.crt",
			}))
			Expect(raw.Global.LogLevel).To(Equal("debug"))
			Expect(raw.Global.HealthCheck.Interval).To(Equal(500 * time.Millisecond))
			Expect(raw.Global.HealthCheck.Frequency).To(Equal(5 * time.Second))
			Expect(raw.Global.HealthCheck.Timeout).To(Equal(250 * time.Millisecond))
			Expect(raw.Global.HealthCheck.Concurrency).To(Equal(4))
		})

		It("should defer empty backend lists to resolution", func() {
			raw, err := parse(`
global: { port: 80 }
servers: []
upstreams:
  - name: empty
    servers: []
`)
			Expect(err).NotTo(HaveOccurred())
			Expect(raw.Upstreams[0].Servers).To(BeEmpty())
		})

		It("should accept empty server and upstream lists", func() {
			raw, err := parse(`
global: { port: 80 }
servers: []
upstreams: []
`)
			Expect(err).NotTo(HaveOccurred())
			Expect(raw.Servers).To(BeEmpty())
			Expect(raw.Upstreams).To(BeEmpty())
		})

		DescribeTable("rejects malformed documents",
			func(doc string) {
				raw, err := parse(doc)
				Expect(raw).To(BeNil())
				var perr *config.ParseError
				Expect(err).To(BeAssignableToTypeOf(perr))
			},
			Entry("invalid yaml", "global: [unclosed"),
			Entry("missing port", "global: { log_level: info }"),
			Entry("empty document", ""),
			Entry("missing servers", `
global: { port: 80 }
upstreams: []
`),
			Entry("missing upstreams", `
global: { port: 80 }
servers: []
`),
			Entry("server rule without hostnames", `
global: { port: 80 }
servers:
  - upstream: web
upstreams: []
`),
			Entry("server rule without upstream", `
global: { port: 80 }
servers:
  - server_name: ["a.com"]
upstreams: []
`),
			Entry("invalid hostname", `
global: { port: 80 }
servers:
  - server_name: ["not a host"]
    upstream: web
upstreams: []
`),
			Entry("upstream without name", `
global: { port: 80 }
servers: []
upstreams:
  - servers: ["10.0.0.1:80"]
`),
			Entry("backend without port", `
global: { port: 80 }
servers: []
upstreams:
  - name: web
    servers: ["10.0.0.1"]
`),
			Entry("backend with port out of range", `
global: { port: 80 }
servers: []
upstreams:
  - name: web
    servers: ["10.0.0.1:70000"]
`),
			Entry("unknown policy", `
global: { port: 80 }
servers: []
upstreams:
  - name: web
    servers: ["10.0.0.1:80"]
    policy: least-conn
`),
			Entry("tls without key", `
global:
  port: 443
  tls: { cert: /tmp/server.crt }
servers: []
upstreams: []
`),
			Entry("unknown log level", `
global: { port: 80, log_level: verbose }
servers: []
upstreams: []
`),
			Entry("non-positive interval", `
global:
  port: 80
  health_check: { interval: 0s }
servers: []
upstreams: []
`),
			Entry("servers is not a list", `
global: { port: 80 }
servers: "nope"
upstreams: []
`),
		)

		Context("with environment overrides", func() {
			AfterEach(func() {
				os.Unsetenv("EDGE_GLOBAL_PORT")
			})

			It("should prefer the environment value", func() {
				os.Setenv("EDGE_GLOBAL_PORT", "9000")
				raw, err := parse(sampleConfig)
				Expect(err).NotTo(HaveOccurred())
				Expect(raw.Global.Port).To(Equal(uint16(9000)))
			})
		})
	})

	Describe("Load", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "config-test-*")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			os.RemoveAll(tempDir)
		})

		It("should load configuration from a file", func() {
			path := filepath.Join(tempDir, "config.yaml")
			Expect(os.WriteFile(path, []byte(sampleConfig), 0644)).To(Succeed())

			raw, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(raw.Servers).To(HaveLen(2))
		})

		It("should fail for a missing file", func() {
			_, err := config.Load(filepath.Join(tempDir, "missing.yaml"))
			Expect(err).To(MatchError(os.ErrNotExist))
		})
	})

	Describe("Path", func() {
		AfterEach(func() {
			os.Unsetenv("EDGE_CONFIG")
		})

		It("should default to the config directory", func() {
			Expect(config.Path()).To(Equal(config.DefaultPath))
		})

		It("should honor EDGE_CONFIG", func() {
			os.Setenv("EDGE_CONFIG", "/etc/edge/routes.yaml")
			Expect(config.Path()).To(Equal("/etc/edge/routes.yaml"))
		})
	})
})

package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/sabarim/starmf/internal/config"
)

const configYAML = `
account:
  user_id: "1234501"
  member_id: "12345"
  password: file-secret
endpoints:
  order_entry: https://example.test/MFOrder.svc/Secure
transport:
  read_timeout: 90s
  max_retries: 2
  verify_tls: false
breaker:
  enabled: false
session:
  validity: 30m
  auto_reauth: false
limits:
  min_lumpsum_amount: 1000
audit:
  dir: /var/lib/starmf/audit
  parquet: true
log:
  level: debug
`

func setenv(key, value string) {
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(os.Unsetenv, key)
}

var _ = Describe("LoadConfig", func() {
	var dir string
	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "starmf-config-*")
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)
	})

	It("Should fall back to defaults when the file is missing", func() {
		cfg, err := config.LoadConfig(filepath.Join(dir, "missing.yaml"))
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.Endpoints.OrderEntry).To(Equal(config.DefaultOrderEntryURL))
		Expect(cfg.Transport.ConnectTimeout).To(Equal(30 * time.Second))
		Expect(cfg.Transport.ReadTimeout).To(Equal(60 * time.Second))
		Expect(cfg.Transport.MaxRetries).To(Equal(3))
		Expect(cfg.Transport.VerifyTLS).To(BeTrue())
		Expect(cfg.Breaker.Enabled).To(BeTrue())
		Expect(cfg.Breaker.Threshold).To(Equal(uint32(5)))
		Expect(cfg.Session.Validity).To(Equal(time.Hour))
		Expect(cfg.Session.AutoReauth).To(BeTrue())
		Expect(cfg.Session.MaxLoginAttempts).To(Equal(5))
		Expect(cfg.Limits.MinLumpsumAmount).To(Equal(5000.0))
		Expect(cfg.Limits.MaxSIPInstallments).To(Equal(999))
		Expect(cfg.Audit.Dir).To(Equal("audit"))
		Expect(cfg.Log.Level).To(Equal("info"))
	})

	It("Should read values from the file", func() {
		path := filepath.Join(dir, "config.yaml")
		Expect(os.WriteFile(path, []byte(configYAML), 0o600)).To(Succeed())

		cfg, err := config.LoadConfig(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.Account.UserID).To(Equal("1234501"))
		Expect(cfg.Account.Password).To(Equal("file-secret"))
		Expect(cfg.Endpoints.OrderEntry).To(Equal("https://example.test/MFOrder.svc/Secure"))
		Expect(cfg.Transport.ReadTimeout).To(Equal(90 * time.Second))
		Expect(cfg.Transport.ConnectTimeout).To(Equal(30 * time.Second))
		Expect(cfg.Transport.MaxRetries).To(Equal(2))
		Expect(cfg.Transport.VerifyTLS).To(BeFalse())
		Expect(cfg.Breaker.Enabled).To(BeFalse())
		Expect(cfg.Session.Validity).To(Equal(30 * time.Minute))
		Expect(cfg.Session.AutoReauth).To(BeFalse())
		Expect(cfg.Audit.Parquet).To(BeTrue())
		Expect(cfg.Log.Level).To(Equal("debug"))
	})

	It("Should let the environment override the file", func() {
		path := filepath.Join(dir, "config.yaml")
		Expect(os.WriteFile(path, []byte(configYAML), 0o600)).To(Succeed())
		setenv(config.EnvName("account.password"), "env-secret")
		setenv(config.EnvName("transport.max_retries"), "7")

		cfg, err := config.LoadConfig(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.Account.Password).To(Equal("env-secret"))
		Expect(cfg.Transport.MaxRetries).To(Equal(7))
		Expect(cfg.Account.UserID).To(Equal("1234501"))
	})

	It("Should reject a malformed file", func() {
		path := filepath.Join(dir, "config.yaml")
		Expect(os.WriteFile(path, []byte("account: [unclosed"), 0o600)).To(Succeed())
		_, err := config.LoadConfig(path)
		Expect(err).To(MatchError(ContainSubstring("[config]")))
	})
})

var _ = Describe("Config conversions", func() {
	It("Should name environment overrides after the key", func() {
		Expect(config.EnvName("account.user_id")).To(Equal("STARMF_ACCOUNT_USER_ID"))
	})

	It("Should convert sections for the components", func() {
		cfg, err := config.LoadConfig(filepath.Join(os.TempDir(), "starmf-no-such-config.yaml"))
		Expect(err).ToNot(HaveOccurred())
		cfg.Account = config.AccountConfig{UserID: "U", MemberID: "M", Password: "P"}

		creds := cfg.Credentials()
		Expect(creds.UserID).To(Equal("U"))
		Expect(creds.Password).To(Equal("P"))

		t := cfg.TransportOptions()
		Expect(t.Policy.MaxRetries).To(Equal(3))
		Expect(t.Breaker.Threshold).To(Equal(uint32(5)))

		limits := cfg.OrderLimits()
		Expect(limits.MinLumpsumAmount.Equal(decimal.NewFromInt(5000))).To(BeTrue())
		Expect(cfg.SessionOptions()).To(HaveLen(3))
	})
})

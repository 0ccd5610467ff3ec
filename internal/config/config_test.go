package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/Andrej220/go-utils/jobsched"
	"github.com/Andrej220/go-utils/jobsched/internal/config"
)

var _ = Describe("Configuration", func() {
	Describe("Default", func() {
		It("should apply struct defaults", func() {
			cfg := config.Default()

			Expect(cfg.Groups).To(Equal("1:2,2:1"))
			Expect(cfg.QueueCapacity).To(Equal(1024))
			Expect(cfg.FullPolicy).To(Equal("overwrite"))
			Expect(cfg.Match).To(Equal("subset"))
			Expect(cfg.Work).To(Equal(100 * time.Microsecond))
			Expect(cfg.ShutdownTimeout).To(Equal(30 * time.Second))
			Expect(cfg.Pin).To(BeFalse())
			Expect(cfg.Validate()).To(Succeed())
		})
	})

	Describe("ParseGroups", func() {
		It("should parse binary, hex and decimal masks", func() {
			groups, err := config.ParseGroups("0b01:2, 0x2:1,4:3")
			Expect(err).NotTo(HaveOccurred())
			Expect(groups).To(Equal([]jobsched.WorkerGroup{
				{Mask: 0b01, Count: 2},
				{Mask: 0b10, Count: 1},
				{Mask: 0b100, Count: 3},
			}))
		})

		DescribeTable("should reject malformed groups",
			func(in string) {
				_, err := config.ParseGroups(in)
				Expect(err).To(MatchError(config.ErrInvalidConfig))
			},
			Entry("empty", ""),
			Entry("missing count", "1"),
			Entry("zero count", "1:0"),
			Entry("negative count", "1:-2"),
			Entry("zero mask", "0:1"),
			Entry("bad mask", "zz:1"),
		)
	})

	Describe("Validate", func() {
		It("should report every problem at once", func() {
			cfg := config.Default()
			cfg.Groups = ""
			cfg.FullPolicy = "block"
			cfg.Match = "exact"
			cfg.QueueCapacity = 0
			cfg.Submitters = 0

			err := cfg.Validate()
			Expect(err).To(HaveOccurred())
			Expect(multierr.Errors(err)).To(HaveLen(5))
		})
	})

	Describe("SchedulerOptions", func() {
		It("should convert into scheduler options", func() {
			cfg := config.Default()
			cfg.FullPolicy = "reject"
			cfg.Match = "tier"
			cfg.QueueCapacity = 8

			opts, err := cfg.SchedulerOptions()
			Expect(err).NotTo(HaveOccurred())
			Expect(opts.Groups).To(HaveLen(2))
			Expect(opts.TotalWorkers()).To(Equal(3))
			Expect(opts.QueueCapacity).To(Equal(8))
			Expect(opts.FullPolicy).To(Equal(jobsched.RejectNew))
			Expect(opts.Match).To(Equal(jobsched.MatchTier))
			Expect(opts.Validate()).To(Succeed())
		})
	})

	Describe("Load", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
		})

		It("should keep defaults when nothing is set", func() {
			cfg, err := config.Load(viper.New(), "")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.Default()))
		})

		It("should read a config file over the defaults", func() {
			file := filepath.Join(dir, "jobsched.yaml")
			Expect(os.WriteFile(file, []byte("groups: \"0b11:4\"\nqueue-capacity: 16\nwork: 2ms\n"), 0o600)).To(Succeed())

			cfg, err := config.Load(viper.New(), file)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Groups).To(Equal("0b11:4"))
			Expect(cfg.QueueCapacity).To(Equal(16))
			Expect(cfg.Work).To(Equal(2 * time.Millisecond))
			Expect(cfg.Match).To(Equal("subset"))
		})

		It("should let the environment override the file", func() {
			file := filepath.Join(dir, "jobsched.yaml")
			Expect(os.WriteFile(file, []byte("queue-capacity: 16\n"), 0o600)).To(Succeed())
			GinkgoT().Setenv("JOBSCHED_QUEUE_CAPACITY", "32")

			cfg, err := config.Load(viper.New(), file)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.QueueCapacity).To(Equal(32))
		})

		It("should fail on a missing file", func() {
			_, err := config.Load(viper.New(), filepath.Join(dir, "missing.yaml"))
			Expect(err).To(HaveOccurred())
		})

		It("should fail validation on bad values", func() {
			file := filepath.Join(dir, "jobsched.yaml")
			Expect(os.WriteFile(file, []byte("full-policy: block\n"), 0o600)).To(Succeed())

			_, err := config.Load(viper.New(), file)
			Expect(err).To(MatchError(config.ErrInvalidConfig))
		})
	})
})

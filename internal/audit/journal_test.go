package audit_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/sabarim/starmf/internal/audit"
)

func tempDir() string {
	dir, err := os.MkdirTemp("", "starmf-audit-*")
	Expect(err).ToNot(HaveOccurred())
	DeferCleanup(os.RemoveAll, dir)
	return dir
}

func exchange(id string, at time.Time) audit.Exchange {
	return audit.Exchange{
		ID:       id,
		Time:     at,
		Method:   "orderEntryParam",
		Endpoint: "https://example.test",
		RefNo:    "REF" + id,
		Request:  "NEW|REF" + id + "|a,b|\"quoted\"|****",
		Response: "NEW|REF" + id + "|900001|U|M|C|ORD CONF\nsecond line",
		Outcome:  audit.OutcomeOK,
		Duration: 1500 * time.Millisecond,
		Attempt:  2,
	}
}

var _ = Describe("Journal", func() {
	var dir string
	BeforeEach(func() {
		dir = tempDir()
	})

	It("Should read back what it recorded", func() {
		j, err := audit.OpenJournal(dir, zap.NewNop())
		Expect(err).ToNot(HaveOccurred())
		at := time.Date(2024, 5, 2, 10, 0, 0, 123000000, time.UTC)
		Expect(j.Record(exchange("1", at))).To(Succeed())
		Expect(j.Record(exchange("2", at.Add(time.Minute)))).To(Succeed())
		Expect(j.Close()).To(Succeed())

		got, err := audit.ReadJournal(filepath.Join(dir, audit.JournalFile))
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(HaveLen(2))
		Expect(got[0]).To(Equal(exchange("1", at)))
		Expect(got[1].ID).To(Equal("2"))
	})

	It("Should append to an existing journal without a second header", func() {
		at := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
		for _, id := range []string{"1", "2"} {
			j, err := audit.OpenJournal(dir, zap.NewNop())
			Expect(err).ToNot(HaveOccurred())
			Expect(j.Record(exchange(id, at))).To(Succeed())
			Expect(j.Close()).To(Succeed())
		}
		got, err := audit.ReadJournal(filepath.Join(dir, audit.JournalFile))
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(HaveLen(2))
	})
})

var _ = Describe("Parquet export", func() {
	It("Should write one file per day and read it back", func() {
		dir := tempDir()
		j, err := audit.OpenJournal(dir, zap.NewNop())
		Expect(err).ToNot(HaveOccurred())
		day1 := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
		day2 := day1.Add(24 * time.Hour)
		Expect(j.Record(exchange("1", day1))).To(Succeed())
		Expect(j.Record(exchange("2", day1.Add(time.Hour)))).To(Succeed())
		Expect(j.Record(exchange("3", day2))).To(Succeed())
		Expect(j.Close()).To(Succeed())

		out := filepath.Join(dir, "parquet")
		files, err := audit.ExportParquet(j.Path(), out)
		Expect(err).ToNot(HaveOccurred())
		Expect(files).To(Equal([]string{
			filepath.Join(out, "exchanges_2024-05-02.parquet"),
			filepath.Join(out, "exchanges_2024-05-03.parquet"),
		}))

		rows, err := audit.ReadParquet(files[0])
		Expect(err).ToNot(HaveOccurred())
		Expect(rows).To(HaveLen(2))
		Expect(rows[0].ID).To(Equal("1"))
		Expect(rows[0].Timestamp).To(Equal(day1.UnixMilli()))
		Expect(rows[0].DurationMs).To(Equal(int64(1500)))
		Expect(rows[0].Outcome).To(Equal(audit.OutcomeOK))
		Expect(rows[0].Attempt).To(Equal(int32(2)))
	})

	It("Should write nothing for an empty journal", func() {
		dir := tempDir()
		j, err := audit.OpenJournal(dir, zap.NewNop())
		Expect(err).ToNot(HaveOccurred())
		Expect(j.Close()).To(Succeed())
		files, err := audit.ExportParquet(j.Path(), filepath.Join(dir, "parquet"))
		Expect(err).ToNot(HaveOccurred())
		Expect(files).To(BeEmpty())
	})
})

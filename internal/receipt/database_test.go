package receipt

import (
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/receiptradar/receiptradar/internal/extraction"
)

func testReceipt(id string) *Receipt {
	total := decimal.NewFromFloat(45.67)
	return &Receipt{
		ID:          id,
		Filename:    "grocery.jpg",
		UploadDate:  time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		ContentType: "image/jpeg",
		StoredPath:  id + "_grocery.jpg",
		Status:      StatusCompleted,
		ExtractedData: extraction.ExtractedData{
			MerchantName: "Fresh Market",
			Date:         "2024-01-15",
			Total:        &total,
			Items: []extraction.LineItem{
				{Name: "Organic Bananas", Price: decimal.NewFromFloat(3.99), Quantity: 1},
			},
		},
	}
}

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("SaveReceipt", func() {
		var (
			receipt *Receipt
			err     error
		)

		BeforeEach(func() {
			receipt = testReceipt("test-id")
		})

		JustBeforeEach(func() {
			err = db.SaveReceipt(receipt)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should save the receipt to the database", func() {
				saved, getErr := db.GetReceipt("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.ID).To(Equal("test-id"))
			})
		})

		When("saving over an existing record", func() {
			BeforeEach(func() {
				processing := testReceipt("test-id")
				processing.Status = StatusProcessing
				processing.ExtractedData = extraction.ExtractedData{}
				Expect(db.SaveReceipt(processing)).NotTo(HaveOccurred())
			})

			It("should replace the record as a unit", func() {
				saved, getErr := db.GetReceipt("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.Status).To(Equal(StatusCompleted))
				Expect(saved.ExtractedData.MerchantName).To(Equal("Fresh Market"))
			})
		})
	})

	Describe("GetReceipt", func() {
		var (
			receiptID string
			receipt   *Receipt
			err       error
		)

		JustBeforeEach(func() {
			receipt, err = db.GetReceipt(receiptID)
		})

		When("receipt exists", func() {
			BeforeEach(func() {
				receiptID = "test-id"
				Expect(db.SaveReceipt(testReceipt("test-id"))).NotTo(HaveOccurred())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the correct receipt ID", func() {
				Expect(receipt.ID).To(Equal("test-id"))
			})

			It("should return the lifecycle status", func() {
				Expect(receipt.Status).To(Equal(StatusCompleted))
			})

			It("should round-trip the extracted data", func() {
				Expect(receipt.ExtractedData.MerchantName).To(Equal("Fresh Market"))
				Expect(receipt.ExtractedData.Total).NotTo(BeNil())
				Expect(receipt.ExtractedData.Total.StringFixed(2)).To(Equal("45.67"))
				Expect(receipt.ExtractedData.Items).To(HaveLen(1))
				Expect(receipt.ExtractedData.Items[0].Price.StringFixed(2)).To(Equal("3.99"))
			})
		})

		When("receipt does not exist", func() {
			BeforeEach(func() {
				receiptID = "nonexistent"
			})

			It("returns a not found error", func() {
				Expect(err).To(MatchError(ErrNotFound))
			})
		})
	})

	Describe("UpdateReceipt", func() {
		When("receipt exists", func() {
			BeforeEach(func() {
				fresh := testReceipt("test-id")
				fresh.Status = StatusProcessing
				Expect(db.SaveReceipt(fresh)).NotTo(HaveOccurred())
			})

			It("should persist the mutation", func() {
				err := db.UpdateReceipt("test-id", func(r *Receipt) error {
					r.Status = StatusCompleted
					return nil
				})
				Expect(err).NotTo(HaveOccurred())

				saved, getErr := db.GetReceipt("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.Status).To(Equal(StatusCompleted))
			})

			It("should abort the write when the callback fails", func() {
				rejected := errors.New("leave it alone")
				err := db.UpdateReceipt("test-id", func(r *Receipt) error {
					r.Status = StatusError
					return rejected
				})
				Expect(err).To(MatchError(rejected))

				saved, getErr := db.GetReceipt("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.Status).To(Equal(StatusProcessing))
			})
		})

		When("receipt does not exist", func() {
			It("returns a not found error without calling the callback", func() {
				called := false
				err := db.UpdateReceipt("nonexistent", func(r *Receipt) error {
					called = true
					return nil
				})
				Expect(err).To(MatchError(ErrNotFound))
				Expect(called).To(BeFalse())
			})
		})
	})

	Describe("ListReceipts", func() {
		var (
			receipts []*Receipt
			err      error
		)

		JustBeforeEach(func() {
			receipts, err = db.ListReceipts()
		})

		When("receipts exist", func() {
			BeforeEach(func() {
				Expect(db.SaveReceipt(testReceipt("id1"))).NotTo(HaveOccurred())
				Expect(db.SaveReceipt(testReceipt("id2"))).NotTo(HaveOccurred())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return all receipts", func() {
				Expect(receipts).To(HaveLen(2))
			})
		})

		When("no receipts exist", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return an empty list", func() {
				Expect(receipts).To(BeEmpty())
			})
		})
	})

	Describe("DeleteReceipt", func() {
		var (
			receiptID string
			err       error
		)

		JustBeforeEach(func() {
			err = db.DeleteReceipt(receiptID)
		})

		When("receipt exists", func() {
			BeforeEach(func() {
				receiptID = "test-id"
				Expect(db.SaveReceipt(testReceipt("test-id"))).NotTo(HaveOccurred())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should remove the receipt from the database", func() {
				_, getErr := db.GetReceipt("test-id")
				Expect(getErr).To(MatchError(ErrNotFound))
			})
		})

		When("receipt does not exist", func() {
			BeforeEach(func() {
				receiptID = "nonexistent"
			})

			It("returns a not found error", func() {
				Expect(err).To(MatchError(ErrNotFound))
			})
		})
	})

	Describe("Close", func() {
		It("should not return an error", func() {
			err := db.Close()
			Expect(err).NotTo(HaveOccurred())
			db = nil
		})
	})
})

var _ = Describe("MemoryDB", func() {
	var db *MemoryDB

	BeforeEach(func() {
		db = NewMemoryDB()
	})

	Describe("SaveReceipt", func() {
		It("should store a copy, not the caller's pointer", func() {
			receipt := testReceipt("test-id")
			Expect(db.SaveReceipt(receipt)).NotTo(HaveOccurred())

			receipt.Status = StatusError

			saved, err := db.GetReceipt("test-id")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Status).To(Equal(StatusCompleted))
		})
	})

	Describe("GetReceipt", func() {
		When("receipt exists", func() {
			BeforeEach(func() {
				Expect(db.SaveReceipt(testReceipt("test-id"))).NotTo(HaveOccurred())
			})

			It("should return the receipt", func() {
				receipt, err := db.GetReceipt("test-id")
				Expect(err).NotTo(HaveOccurred())
				Expect(receipt.ID).To(Equal("test-id"))
			})

			It("should return a copy the caller may mutate", func() {
				receipt, err := db.GetReceipt("test-id")
				Expect(err).NotTo(HaveOccurred())
				receipt.Status = StatusError

				again, err := db.GetReceipt("test-id")
				Expect(err).NotTo(HaveOccurred())
				Expect(again.Status).To(Equal(StatusCompleted))
			})
		})

		When("receipt does not exist", func() {
			It("returns a not found error", func() {
				_, err := db.GetReceipt("nonexistent")
				Expect(err).To(MatchError(ErrNotFound))
			})
		})
	})

	Describe("ListReceipts", func() {
		It("should return all receipts", func() {
			Expect(db.SaveReceipt(testReceipt("id1"))).NotTo(HaveOccurred())
			Expect(db.SaveReceipt(testReceipt("id2"))).NotTo(HaveOccurred())

			receipts, err := db.ListReceipts()
			Expect(err).NotTo(HaveOccurred())
			Expect(receipts).To(HaveLen(2))
		})

		It("should return an empty list when nothing is stored", func() {
			receipts, err := db.ListReceipts()
			Expect(err).NotTo(HaveOccurred())
			Expect(receipts).To(BeEmpty())
		})
	})

	Describe("UpdateReceipt", func() {
		It("should apply the mutation under the lock", func() {
			fresh := testReceipt("test-id")
			fresh.Status = StatusProcessing
			Expect(db.SaveReceipt(fresh)).NotTo(HaveOccurred())

			err := db.UpdateReceipt("test-id", func(r *Receipt) error {
				r.Status = StatusCompleted
				return nil
			})
			Expect(err).NotTo(HaveOccurred())

			saved, getErr := db.GetReceipt("test-id")
			Expect(getErr).NotTo(HaveOccurred())
			Expect(saved.Status).To(Equal(StatusCompleted))
		})

		It("should leave the record untouched when the callback fails", func() {
			Expect(db.SaveReceipt(testReceipt("test-id"))).NotTo(HaveOccurred())

			rejected := errors.New("leave it alone")
			err := db.UpdateReceipt("test-id", func(r *Receipt) error {
				r.Status = StatusError
				return rejected
			})
			Expect(err).To(MatchError(rejected))

			saved, getErr := db.GetReceipt("test-id")
			Expect(getErr).NotTo(HaveOccurred())
			Expect(saved.Status).To(Equal(StatusCompleted))
		})

		It("returns a not found error for a deleted receipt", func() {
			Expect(db.SaveReceipt(testReceipt("test-id"))).NotTo(HaveOccurred())
			Expect(db.DeleteReceipt("test-id")).NotTo(HaveOccurred())

			err := db.UpdateReceipt("test-id", func(r *Receipt) error {
				r.Status = StatusCompleted
				return nil
			})
			Expect(err).To(MatchError(ErrNotFound))

			_, getErr := db.GetReceipt("test-id")
			Expect(getErr).To(MatchError(ErrNotFound))
		})
	})

	Describe("DeleteReceipt", func() {
		It("should remove an existing receipt", func() {
			Expect(db.SaveReceipt(testReceipt("test-id"))).NotTo(HaveOccurred())
			Expect(db.DeleteReceipt("test-id")).NotTo(HaveOccurred())

			_, err := db.GetReceipt("test-id")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("returns a not found error for a missing receipt", func() {
			Expect(db.DeleteReceipt("nonexistent")).To(MatchError(ErrNotFound))
		})
	})
})

// Package catalog defines the canonical commission fields an uploaded
// report column may be mapped to, and scores raw headers against them.
package catalog

import (
	"github.com/mastanley13/commissable-crm/internal/domain/deposit/header"
)

// Entity identifies which record a target field belongs to.
type Entity string

const (
	EntityDepositLineItem Entity = "depositLineItem"
	EntityDeposit         Entity = "deposit"
	EntityOpportunity     Entity = "opportunity"
	EntityProduct         Entity = "product"
	EntityMatching        Entity = "matching"
)

// DataType is the scalar type of a target field.
type DataType string

const (
	TypeString  DataType = "string"
	TypeNumber  DataType = "number"
	TypeDate    DataType = "date"
	TypeBoolean DataType = "boolean"
)

// Persistence says whether a target is backed by a physical column or a
// path into a metadata bag.
type Persistence string

const (
	PersistColumn   Persistence = "column"
	PersistMetadata Persistence = "metadata"
)

// FieldTarget is one canonical commission concept a raw column can map to.
type FieldTarget struct {
	ID           string
	Label        string
	Entity       Entity
	DataType     DataType
	Persistence  Persistence
	ColumnName   string
	MetadataPath []string
	Required     bool
	Synonyms     []string
}

// Well-known target ids referenced by auto-mapping and the suggestion
// scorer's amount/rate disambiguation.
const (
	TargetUsage          = "lineItem.usage"
	TargetCommission     = "lineItem.commission"
	TargetCommissionRate = "lineItem.commissionRate"
	TargetAccountNumber  = "lineItem.accountNumber"
	TargetCustomerName   = "lineItem.customerName"
	TargetInvoiceDate    = "lineItem.invoiceDate"
	TargetProductName    = "lineItem.productName"
	TargetOrderNumber    = "lineItem.orderNumber"
	TargetDescription    = "lineItem.description"
)

func lineItemTargets() []FieldTarget {
	return []FieldTarget{
		{
			ID: TargetUsage, Label: "Usage Amount", Entity: EntityDepositLineItem,
			DataType: TypeNumber, Persistence: PersistColumn, ColumnName: "usage_amount", Required: true,
			Synonyms: []string{"usage", "net billed", "billed amount", "total bill", "invoice amount", "sales", "revenue", "mrc"},
		},
		{
			ID: TargetCommission, Label: "Commission Amount", Entity: EntityDepositLineItem,
			DataType: TypeNumber, Persistence: PersistColumn, ColumnName: "commission_amount", Required: true,
			Synonyms: []string{"commission", "comm amount", "total commission", "comm paid", "payout", "agent commission"},
		},
		{
			ID: TargetCommissionRate, Label: "Commission Rate", Entity: EntityDepositLineItem,
			DataType: TypeNumber, Persistence: PersistColumn, ColumnName: "commission_rate",
			Synonyms: []string{"commission rate", "comm rate", "rate", "comm percent", "commission percent", "percentage"},
		},
		{
			ID: TargetAccountNumber, Label: "Account Number", Entity: EntityDepositLineItem,
			DataType: TypeString, Persistence: PersistColumn, ColumnName: "account_number",
			Synonyms: []string{"account number", "account", "account no", "acct", "acct number", "provider account number", "ban"},
		},
		{
			ID: TargetCustomerName, Label: "Customer Name", Entity: EntityDepositLineItem,
			DataType: TypeString, Persistence: PersistColumn, ColumnName: "customer_name",
			Synonyms: []string{"customer", "customer name", "client", "client name", "end user", "company name"},
		},
		{
			ID: TargetInvoiceDate, Label: "Invoice Date", Entity: EntityDepositLineItem,
			DataType: TypeDate, Persistence: PersistColumn, ColumnName: "invoice_date",
			Synonyms: []string{"invoice date", "bill date", "billing date", "statement date", "cycle date"},
		},
		{
			ID: TargetProductName, Label: "Product", Entity: EntityDepositLineItem,
			DataType: TypeString, Persistence: PersistColumn, ColumnName: "product_name",
			Synonyms: []string{"product", "product name", "service", "service type", "plan", "item"},
		},
		{
			ID: TargetOrderNumber, Label: "Order Number", Entity: EntityDepositLineItem,
			DataType: TypeString, Persistence: PersistColumn, ColumnName: "order_number",
			Synonyms: []string{"order number", "order", "order id", "circuit id", "reference"},
		},
		{
			ID: TargetDescription, Label: "Description", Entity: EntityDepositLineItem,
			DataType: TypeString, Persistence: PersistColumn, ColumnName: "description",
			Synonyms: []string{"description", "notes", "memo", "detail", "line description"},
		},
	}
}

func depositTargets() []FieldTarget {
	return []FieldTarget{
		{
			ID: "deposit.name", Label: "Deposit Name", Entity: EntityDeposit,
			DataType: TypeString, Persistence: PersistColumn, ColumnName: "deposit_name",
			Synonyms: []string{"deposit", "deposit name", "statement", "report name"},
		},
		{
			ID: "deposit.paymentDate", Label: "Payment Date", Entity: EntityDeposit,
			DataType: TypeDate, Persistence: PersistColumn, ColumnName: "payment_date",
			Synonyms: []string{"payment date", "paid date", "deposit date", "check date", "pay date"},
		},
		{
			ID: "deposit.customerAccount", Label: "Customer Account", Entity: EntityDeposit,
			DataType: TypeString, Persistence: PersistColumn, ColumnName: "customer_account",
			Synonyms: []string{"customer account", "customer id", "customer number", "master account"},
		},
	}
}

func matchingTargets() []FieldTarget {
	return []FieldTarget{
		{
			ID: "matching.accountNumber", Label: "Matching Account Number", Entity: EntityMatching,
			DataType: TypeString, Persistence: PersistMetadata, MetadataPath: []string{"matching", "accountNumber"},
			Synonyms: []string{"matching account", "match account number"},
		},
		{
			ID: "matching.customerName", Label: "Matching Customer Name", Entity: EntityMatching,
			DataType: TypeString, Persistence: PersistMetadata, MetadataPath: []string{"matching", "customerName"},
			Synonyms: []string{"matching customer", "match customer name"},
		},
		{
			ID: "matching.locationId", Label: "Matching Location", Entity: EntityMatching,
			DataType: TypeString, Persistence: PersistMetadata, MetadataPath: []string{"matching", "locationId"},
			Synonyms: []string{"location", "location id", "site", "site id", "service address"},
		},
	}
}

func opportunityTargets() []FieldTarget {
	return []FieldTarget{
		{
			ID: "opportunity.name", Label: "Opportunity Name", Entity: EntityOpportunity,
			DataType: TypeString, Persistence: PersistColumn, ColumnName: "opportunity_name",
			Synonyms: []string{"opportunity", "opportunity name", "deal", "deal name"},
		},
		{
			ID: "opportunity.closeDate", Label: "Opportunity Close Date", Entity: EntityOpportunity,
			DataType: TypeDate, Persistence: PersistColumn, ColumnName: "close_date",
			Synonyms: []string{"close date", "closed date", "won date"},
		},
	}
}

func productTargets() []FieldTarget {
	return []FieldTarget{
		{
			ID: "product.code", Label: "Product Code", Entity: EntityProduct,
			DataType: TypeString, Persistence: PersistColumn, ColumnName: "product_code",
			Synonyms: []string{"product code", "sku", "part number", "usoc"},
		},
		{
			ID: "product.family", Label: "Product Family", Entity: EntityProduct,
			DataType: TypeString, Persistence: PersistMetadata, MetadataPath: []string{"product", "family"},
			Synonyms: []string{"product family", "product category", "product type"},
		},
	}
}

// OpportunityFieldDef is an externally supplied custom opportunity field
// definition folded into the catalog as a dynamic target.
type OpportunityFieldDef struct {
	DataType  string
	FieldCode string
	Label     string
}

// scalar data types supported for dynamic targets; enum and JSON shaped
// definitions are skipped.
var customDataTypes = map[string]DataType{
	"text":     TypeString,
	"string":   TypeString,
	"number":   TypeNumber,
	"currency": TypeNumber,
	"percent":  TypeNumber,
	"date":     TypeDate,
	"boolean":  TypeBoolean,
	"checkbox": TypeBoolean,
}

// Catalog is the enumerable set of mapping targets for one session.
type Catalog struct {
	targets []FieldTarget
	byID    map[string]FieldTarget
}

// New builds a catalog from the static target lists plus one dynamic
// target per supported custom opportunity field definition. Targets are
// de-duplicated by id with static entries winning.
func New(customFields []OpportunityFieldDef) *Catalog {
	c := &Catalog{byID: make(map[string]FieldTarget)}

	add := func(t FieldTarget) {
		if _, exists := c.byID[t.ID]; exists {
			return
		}
		c.byID[t.ID] = t
		c.targets = append(c.targets, t)
	}

	for _, t := range lineItemTargets() {
		add(t)
	}
	for _, t := range depositTargets() {
		add(t)
	}
	for _, t := range matchingTargets() {
		add(t)
	}
	for _, t := range opportunityTargets() {
		add(t)
	}
	for _, t := range productTargets() {
		add(t)
	}

	for _, def := range customFields {
		dataType, ok := customDataTypes[def.DataType]
		if !ok || def.FieldCode == "" {
			continue
		}
		add(FieldTarget{
			ID:           "opportunity." + def.FieldCode,
			Label:        def.Label,
			Entity:       EntityOpportunity,
			DataType:     dataType,
			Persistence:  PersistMetadata,
			MetadataPath: []string{"customFields", def.FieldCode},
			Synonyms:     []string{def.Label},
		})
	}

	return c
}

// Targets returns every target in catalog order.
func (c *Catalog) Targets() []FieldTarget {
	out := make([]FieldTarget, len(c.targets))
	copy(out, c.targets)
	return out
}

// Target looks up a target by id.
func (c *Catalog) Target(id string) (FieldTarget, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// SynonymKeys returns the normalized synonym set for a target, label and
// id included.
func SynonymKeys(t FieldTarget) []string {
	keys := make([]string, 0, len(t.Synonyms)+2)
	seen := make(map[string]struct{}, len(t.Synonyms)+2)
	appendKey := func(raw string) {
		key := header.Normalize(raw)
		if key == "" {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	appendKey(t.Label)
	appendKey(t.ID)
	for _, s := range t.Synonyms {
		appendKey(s)
	}
	return keys
}

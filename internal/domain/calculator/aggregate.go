package calculator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/nfe-fiscal/internal/domain/entity"
	"github.com/jhoicas/nfe-fiscal/internal/domain/fiscal"
)

const unknownLabel = "N/A"

type supplierTotals struct {
	volume decimal.Decimal
	count  int
}

type productTotals struct {
	description string
	quantity    decimal.Decimal
	volume      decimal.Decimal
}

type monthTotals struct {
	count   int
	revenue decimal.Decimal
}

// Accumulator acumula un lote de notas en una sola pasada.
// Los lotes grandes pueden repartirse en shards, acumularse por separado y
// combinarse con Merge: porcentajes y rankings se derivan en Result a partir
// de los totales ya sumados. El orden de aparición se conserva si los shards
// se combinan en el orden del lote. No es seguro para uso concurrente.
type Accumulator struct {
	rates *fiscal.RateTable

	count   int
	revenue decimal.Decimal
	icms    decimal.Decimal
	pis     decimal.Decimal
	cofins  decimal.Decimal
	ipi     decimal.Decimal

	missing       entity.MissingByType
	withMissing   int
	withDefaulted int
	withMalformed int
	withoutDate   int

	supplierOrder []string
	suppliers     map[string]*supplierTotals
	productOrder  []string
	products      map[string]*productTotals
	months        map[string]*monthTotals
}

// NewAccumulator crea un acumulador vacío que usa la tabla de la calculadora.
func (c *Calculator) NewAccumulator() *Accumulator {
	return &Accumulator{
		rates:     c.rates,
		suppliers: make(map[string]*supplierTotals),
		products:  make(map[string]*productTotals),
		months:    make(map[string]*monthTotals),
	}
}

// Len número de notas acumuladas.
func (a *Accumulator) Len() int { return a.count }

// Add incorpora una nota. Solo falla si le faltan secciones obligatorias,
// en cuyo caso el acumulador no se modifica.
func (a *Accumulator) Add(rec *entity.InvoiceRecord) error {
	if err := rec.CheckShape(); err != nil {
		return err
	}
	q := &quality{}
	t := rec.Totals

	total := q.amount(t.InvoiceTotal, "totais.valor_total_nf")
	pis, pisAbsent := q.tracked(fiscal.FieldPIS, t.PISAmount, "totais.valor_pis")
	cofins, cofinsAbsent := q.tracked(fiscal.FieldCOFINS, t.COFINSAmount, "totais.valor_cofins")
	icms, icmsAbsent := q.tracked(fiscal.FieldICMS, t.ICMSAmount, "totais.valor_icms")
	ipi, ipiAbsent := q.tracked(fiscal.FieldIPI, t.IPIAmount, "totais.valor_ipi")

	a.count++
	a.revenue = a.revenue.Add(total)
	a.icms = a.icms.Add(icms)
	a.pis = a.pis.Add(pis)
	a.cofins = a.cofins.Add(cofins)
	a.ipi = a.ipi.Add(ipi)

	if pisAbsent {
		a.missing.PIS++
	}
	if cofinsAbsent {
		a.missing.COFINS++
	}
	if icmsAbsent {
		a.missing.ICMS++
	}
	if ipiAbsent {
		a.missing.IPI++
	}
	if len(q.missing) > 0 {
		a.withMissing++
	}
	if rec.Issuer.StateCode().IsBlank() || rec.Recipient.StateCode().IsBlank() {
		a.withDefaulted++
	}

	a.addSupplier(labelOf(rec.Issuer.LegalName), total, 1)
	for i, item := range rec.Items {
		qty := q.amount(item.Quantity, fmt.Sprintf("produtos[%d].quantidade", i))
		vol := q.amount(item.Total, fmt.Sprintf("produtos[%d].valor_total", i))
		a.addProduct(labelOf(item.Code), labelOf(item.Description), qty, vol)
	}

	if month, ok := fiscal.IssueMonth(rec.Identification.IssueDate); ok {
		a.addMonth(month, 1, total)
	} else {
		a.withoutDate++
	}

	if len(q.malformed) > 0 {
		a.withMalformed++
	}
	return nil
}

// Merge suma otro acumulador al actual. other no se modifica.
func (a *Accumulator) Merge(other *Accumulator) {
	if other == nil {
		return
	}
	a.count += other.count
	a.revenue = a.revenue.Add(other.revenue)
	a.icms = a.icms.Add(other.icms)
	a.pis = a.pis.Add(other.pis)
	a.cofins = a.cofins.Add(other.cofins)
	a.ipi = a.ipi.Add(other.ipi)

	a.missing.PIS += other.missing.PIS
	a.missing.COFINS += other.missing.COFINS
	a.missing.ICMS += other.missing.ICMS
	a.missing.IPI += other.missing.IPI
	a.withMissing += other.withMissing
	a.withDefaulted += other.withDefaulted
	a.withMalformed += other.withMalformed
	a.withoutDate += other.withoutDate

	for _, name := range other.supplierOrder {
		s := other.suppliers[name]
		a.addSupplier(name, s.volume, s.count)
	}
	for _, code := range other.productOrder {
		p := other.products[code]
		a.addProduct(code, p.description, p.quantity, p.volume)
	}
	for month, m := range other.months {
		a.addMonth(month, m.count, m.revenue)
	}
}

func (a *Accumulator) addSupplier(name string, volume decimal.Decimal, count int) {
	s, ok := a.suppliers[name]
	if !ok {
		s = &supplierTotals{}
		a.suppliers[name] = s
		a.supplierOrder = append(a.supplierOrder, name)
	}
	s.volume = s.volume.Add(volume)
	s.count += count
}

func (a *Accumulator) addProduct(code, description string, qty, volume decimal.Decimal) {
	p, ok := a.products[code]
	if !ok {
		p = &productTotals{description: description}
		a.products[code] = p
		a.productOrder = append(a.productOrder, code)
	}
	p.quantity = p.quantity.Add(qty)
	p.volume = p.volume.Add(volume)
}

func (a *Accumulator) addMonth(month string, count int, revenue decimal.Decimal) {
	m, ok := a.months[month]
	if !ok {
		m = &monthTotals{}
		a.months[month] = m
	}
	m.count += count
	m.revenue = m.revenue.Add(revenue)
}

// Result deriva las métricas del lote. Sin notas devuelve la estructura vacía.
func (a *Accumulator) Result() *entity.AggregateMetrics {
	if a.count == 0 {
		return &entity.AggregateMetrics{}
	}
	totalTaxes := fiscal.Round2(a.icms.Add(a.pis).Add(a.cofins).Add(a.ipi))
	burden := fiscal.Percent(totalTaxes, a.revenue)

	out := &entity.AggregateMetrics{
		General: entity.GeneralMetrics{
			InvoiceCount:   a.count,
			Revenue:        a.revenue,
			AverageTicket:  fiscal.Round2(a.revenue.Div(decimal.NewFromInt(int64(a.count)))),
			SupplierCount:  len(a.suppliers),
			UniqueProducts: len(a.products),
		},
		Taxes: entity.AggregateTaxes{
			ICMS:   a.icms,
			PIS:    a.pis,
			COFINS: a.cofins,
			IPI:    a.ipi,
			Total:  totalTaxes,
		},
		TaxBurden: entity.AggregateBurden{
			Percent: burden,
			Class:   fiscal.ClassifyBurden(burden),
			Distribution: entity.TaxDistribution{
				ICMS:   fiscal.Percent(a.icms, totalTaxes),
				PIS:    fiscal.Percent(a.pis, totalTaxes),
				COFINS: fiscal.Percent(a.cofins, totalTaxes),
				IPI:    fiscal.Percent(a.ipi, totalTaxes),
			},
		},
		TopSuppliers: a.topSuppliers(),
		TopProducts:  a.topProducts(),
		Regimes:      regimes(a.rates, a.revenue),
		Monthly:      a.monthly(),
		RateTable:    a.rates.Version(),
	}

	top3Share := decimal.Zero
	for i := 0; i < len(out.TopSuppliers) && i < top3; i++ {
		top3Share = top3Share.Add(out.TopSuppliers[i].Share)
	}
	out.Concentration = entity.ConcentrationAnalysis{
		Top3Percent: top3Share,
		Risk:        fiscal.ClassifyConcentration(top3Share),
	}

	note := "Todos os campos preenchidos"
	if a.withMissing > 0 {
		note = fmt.Sprintf("%d de %d notas possuem campos ausentes (None)", a.withMissing, a.count)
	}
	out.DataQuality = entity.BatchDataQuality{
		InvoicesWithMissing:        a.withMissing,
		IncompletePercent:          fiscal.Percent(decimal.NewFromInt(int64(a.withMissing)), decimal.NewFromInt(int64(a.count))),
		MissingByType:              a.missing,
		InvoicesWithDefaultedState: a.withDefaulted,
		InvoicesWithMalformed:      a.withMalformed,
		InvoicesWithoutDate:        a.withoutDate,
		Note:                       note,
	}
	return out
}

func (a *Accumulator) topSuppliers() []entity.SupplierRank {
	ranks := make([]entity.SupplierRank, 0, len(a.supplierOrder))
	for _, name := range a.supplierOrder {
		s := a.suppliers[name]
		ranks = append(ranks, entity.SupplierRank{
			Name:         name,
			Volume:       s.volume,
			InvoiceCount: s.count,
			Share:        fiscal.Percent(s.volume, a.revenue),
		})
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].Volume.GreaterThan(ranks[j].Volume)
	})
	if len(ranks) > topN {
		ranks = ranks[:topN]
	}
	return ranks
}

func (a *Accumulator) topProducts() []entity.ProductRank {
	volume := decimal.Zero
	for _, code := range a.productOrder {
		volume = volume.Add(a.products[code].volume)
	}
	ranks := make([]entity.ProductRank, 0, len(a.productOrder))
	for _, code := range a.productOrder {
		p := a.products[code]
		ranks = append(ranks, entity.ProductRank{
			Code:        code,
			Description: p.description,
			Quantity:    p.quantity,
			Volume:      p.volume,
			Share:       fiscal.Percent(p.volume, volume),
		})
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].Volume.GreaterThan(ranks[j].Volume)
	})
	if len(ranks) > topN {
		ranks = ranks[:topN]
	}
	return ranks
}

func (a *Accumulator) monthly() []entity.MonthlyBucket {
	keys := make([]string, 0, len(a.months))
	for k := range a.months {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]entity.MonthlyBucket, 0, len(keys))
	for _, k := range keys {
		m := a.months[k]
		out = append(out, entity.MonthlyBucket{Month: k, InvoiceCount: m.count, Revenue: m.revenue})
	}
	return out
}

// AggregateMetrics calcula las métricas de un lote ya validado en forma.
// La primera nota sin secciones obligatorias aborta con su posición.
func (c *Calculator) AggregateMetrics(recs []*entity.InvoiceRecord) (*entity.AggregateMetrics, error) {
	acc := c.NewAccumulator()
	for i, rec := range recs {
		if err := acc.Add(rec); err != nil {
			return nil, fmt.Errorf("nota %d: %w", i, err)
		}
	}
	return acc.Result(), nil
}

func labelOf(v fiscal.Value) string {
	if v.IsBlank() {
		return unknownLabel
	}
	return strings.TrimSpace(v.String())
}

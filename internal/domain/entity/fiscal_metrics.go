package entity

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/nfe-fiscal/internal/domain/fiscal"
)

// InvoiceMetrics métricas calculadas para una nota.
type InvoiceMetrics struct {
	Taxes       ComputedTaxes      `json:"impostos_calculados"`
	TaxBurden   TaxBurden          `json:"carga_tributaria"`
	Credits     CreditOpportunity  `json:"oportunidades_creditos"`
	ICMS        ICMSAnalysis       `json:"analise_icms"`
	Regimes     RegimeComparison   `json:"comparacao_regimes"`
	Products    *ProductAnalysis   `json:"analise_produtos"`
	Operation   OperationContext   `json:"contexto_operacao"`
	DataQuality InvoiceDataQuality `json:"qualidade_dados"`
	RateTable   string             `json:"tabela_aliquotas"`
}

// ComputedTaxes impuestos de la nota tras la conversión segura.
// MissingFields nombra los impuestos ausentes tratados como 0.
type ComputedTaxes struct {
	ICMS          decimal.Decimal `json:"icms"`
	PIS           decimal.Decimal `json:"pis"`
	COFINS        decimal.Decimal `json:"cofins"`
	IPI           decimal.Decimal `json:"ipi"`
	Total         decimal.Decimal `json:"total_impostos"`
	MissingFields []string        `json:"campos_ausentes"`
}

// TaxBurden carga tributaria sobre el total de la nota.
type TaxBurden struct {
	Percent      decimal.Decimal    `json:"percentual"`
	Class        fiscal.BurdenClass `json:"classificacao"`
	InvoiceTotal decimal.Decimal    `json:"valor_total_nf"`
	TotalTaxes   decimal.Decimal    `json:"total_impostos"`
}

// CreditEstimate crédito potencial de un impuesto.
type CreditEstimate struct {
	Declared    decimal.Decimal `json:"atual"`
	Rate        decimal.Decimal `json:"aliquota"`
	Potential   decimal.Decimal `json:"potencial"`
	Recoverable decimal.Decimal `json:"recuperavel"`
	Absent      bool            `json:"ausente"`
}

// CreditOpportunity estimación de créditos de PIS/COFINS.
type CreditOpportunity struct {
	PIS                CreditEstimate  `json:"pis"`
	COFINS             CreditEstimate  `json:"cofins"`
	MonthlyRecoverable decimal.Decimal `json:"total_recuperavel_mensal"`
	AnnualRecoverable  decimal.Decimal `json:"total_recuperavel_anual"`
	Note               string          `json:"observacao,omitempty"`
}

// ICMSAnalysis cruce consultivo entre ICMS declarado y esperado.
type ICMSAnalysis struct {
	Charged        decimal.Decimal   `json:"valor_cobrado"`
	Expected       decimal.Decimal   `json:"valor_esperado"`
	Difference     decimal.Decimal   `json:"diferenca"`
	Base           decimal.Decimal   `json:"base_calculo"`
	StateRate      decimal.Decimal   `json:"aliquota_uf"`
	InterstateRate *decimal.Decimal  `json:"aliquota_interestadual,omitempty"`
	Status         fiscal.ICMSStatus `json:"status"`
	Absent         bool              `json:"ausente"`
	StateDefaulted bool              `json:"uf_padrao_aplicada"`
}

// RegimeEstimate estimación heurística para un régimen.
type RegimeEstimate struct {
	EstimatedTaxes decimal.Decimal `json:"impostos_estimados"`
	Rate           decimal.Decimal `json:"aliquota_efetiva"`
	Note           string          `json:"observacao,omitempty"`
}

// RegimeComparison comparación entre los tres regímenes.
type RegimeComparison struct {
	Simples   RegimeEstimate `json:"simples_nacional"`
	Presumido RegimeEstimate `json:"lucro_presumido"`
	Real      RegimeEstimate `json:"lucro_real"`
}

// ProductSample cantidad y primeros ejemplos de productos con una carencia.
type ProductSample struct {
	Count    int      `json:"quantidade"`
	Examples []string `json:"exemplos"`
}

// ProductAnalysis revisión de calidad por producto.
type ProductAnalysis struct {
	Count            int             `json:"total_produtos"`
	AverageValue     decimal.Decimal `json:"valor_medio_produto"`
	MissingICMS      ProductSample   `json:"produtos_sem_icms"`
	MissingPISCOFINS ProductSample   `json:"produtos_sem_pis_cofins"`
}

// OperationContext contexto geográfico de la operación.
type OperationContext struct {
	Interstate              bool   `json:"interestadual"`
	IssuerState             string `json:"uf_emitente"`
	RecipientState          string `json:"uf_destinatario"`
	IssuerStateDefaulted    bool   `json:"uf_emitente_padrao"`
	RecipientStateDefaulted bool   `json:"uf_destinatario_padrao"`
	ProductCount            int    `json:"total_produtos"`
}

// InvoiceDataQuality campos ausentes, inválidos o rellenados con un valor por defecto.
type InvoiceDataQuality struct {
	MissingCount    int              `json:"campos_none_total"`
	MissingFields   []string         `json:"campos_none_lista"`
	DefaultedFields []string         `json:"campos_com_padrao"`
	MalformedFields []string         `json:"campos_invalidos"`
	Integrity       fiscal.Integrity `json:"integridade_dados"`
}

// AggregateMetrics métricas consolidadas de un lote de notas.
// Un lote vacío produce el valor cero; ver IsEmpty.
type AggregateMetrics struct {
	General       GeneralMetrics        `json:"metricas_gerais"`
	Taxes         AggregateTaxes        `json:"impostos_agregados"`
	TaxBurden     AggregateBurden       `json:"carga_tributaria_agregada"`
	TopSuppliers  []SupplierRank        `json:"top_fornecedores"`
	Concentration ConcentrationAnalysis `json:"analise_concentracao"`
	TopProducts   []ProductRank         `json:"top_produtos"`
	Regimes       RegimeComparison      `json:"comparacao_regimes"`
	Monthly       []MonthlyBucket       `json:"evolucao_temporal"`
	DataQuality   BatchDataQuality      `json:"qualidade_dados"`
	RateTable     string                `json:"tabela_aliquotas,omitempty"`
}

// IsEmpty indica que el lote no tenía notas.
func (a *AggregateMetrics) IsEmpty() bool {
	return a == nil || a.General.InvoiceCount == 0
}

// GeneralMetrics totales generales del lote.
type GeneralMetrics struct {
	InvoiceCount   int             `json:"total_notas"`
	Revenue        decimal.Decimal `json:"faturamento_total"`
	AverageTicket  decimal.Decimal `json:"ticket_medio"`
	SupplierCount  int             `json:"total_fornecedores"`
	UniqueProducts int             `json:"total_produtos_unicos"`
}

// AggregateTaxes suma de impuestos del lote.
type AggregateTaxes struct {
	ICMS   decimal.Decimal `json:"icms_total"`
	PIS    decimal.Decimal `json:"pis_total"`
	COFINS decimal.Decimal `json:"cofins_total"`
	IPI    decimal.Decimal `json:"ipi_total"`
	Total  decimal.Decimal `json:"total_impostos"`
}

// TaxDistribution participación de cada impuesto en el total de impuestos.
type TaxDistribution struct {
	ICMS   decimal.Decimal `json:"icms_percent"`
	PIS    decimal.Decimal `json:"pis_percent"`
	COFINS decimal.Decimal `json:"cofins_percent"`
	IPI    decimal.Decimal `json:"ipi_percent"`
}

// AggregateBurden carga tributaria del lote.
type AggregateBurden struct {
	Percent      decimal.Decimal    `json:"percentual"`
	Class        fiscal.BurdenClass `json:"classificacao"`
	Distribution TaxDistribution    `json:"distribuicao"`
}

// SupplierRank proveedor del ranking por volumen.
type SupplierRank struct {
	Name         string          `json:"nome"`
	Volume       decimal.Decimal `json:"valor_total"`
	InvoiceCount int             `json:"quantidade_notas"`
	Share        decimal.Decimal `json:"percentual_faturamento"`
}

// ConcentrationAnalysis riesgo de concentración en los 3 mayores proveedores.
type ConcentrationAnalysis struct {
	Top3Percent decimal.Decimal  `json:"concentracao_top3_percent"`
	Risk        fiscal.RiskLevel `json:"nivel_risco"`
}

// ProductRank producto del ranking por volumen.
type ProductRank struct {
	Code        string          `json:"codigo"`
	Description string          `json:"descricao"`
	Quantity    decimal.Decimal `json:"quantidade_total"`
	Volume      decimal.Decimal `json:"valor_total"`
	Share       decimal.Decimal `json:"percentual_valor"`
}

// MonthlyBucket punto de la serie mensual ("2024-03").
type MonthlyBucket struct {
	Month        string          `json:"mes"`
	InvoiceCount int             `json:"quantidade_notas"`
	Revenue      decimal.Decimal `json:"faturamento"`
}

// MissingByType ausencias por impuesto en todo el lote.
type MissingByType struct {
	PIS    int `json:"PIS"`
	COFINS int `json:"COFINS"`
	ICMS   int `json:"ICMS"`
	IPI    int `json:"IPI"`
}

// BatchDataQuality calidad de datos del lote.
type BatchDataQuality struct {
	InvoicesWithMissing        int             `json:"notas_com_campos_none"`
	IncompletePercent          decimal.Decimal `json:"percentual_notas_incompletas"`
	MissingByType              MissingByType   `json:"campos_none_por_tipo"`
	InvoicesWithDefaultedState int             `json:"notas_com_uf_padrao"`
	InvoicesWithMalformed      int             `json:"notas_com_campos_invalidos"`
	InvoicesWithoutDate        int             `json:"notas_sem_data"`
	Note                       string          `json:"observacao,omitempty"`
}

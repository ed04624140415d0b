package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jhoicas/nfe-fiscal/internal/domain"
	"github.com/jhoicas/nfe-fiscal/internal/domain/fiscal"
)

// Secciones obligatorias del registro.
const (
	SectionIdentification = "identificacao"
	SectionIssuer         = "emitente"
	SectionRecipient      = "destinatario"
	SectionTotals         = "totais"
)

// SectionError indica una sección obligatoria ausente o con forma incorrecta.
type SectionError struct {
	Section string
	Reason  string
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("seção obrigatória %q %s", e.Section, e.Reason)
}

// Unwrap permite errors.Is(err, domain.ErrInvalidRecord).
func (e *SectionError) Unwrap() error { return domain.ErrInvalidRecord }

// DecodeInvoiceRecord decodifica JSON en un InvoiceRecord.
// Solo falla si el documento no es un objeto o falta una sección obligatoria;
// cualquier otro tipo inesperado se trata como ausente.
func DecodeInvoiceRecord(data []byte) (*InvoiceRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: o registro deve ser um objeto JSON", domain.ErrInvalidRecord)
	}
	return RecordFromMap(m)
}

// UnmarshalJSON usa DecodeInvoiceRecord para que los lotes ({"notas": [...]})
// tengan la misma tolerancia que una nota individual.
func (r *InvoiceRecord) UnmarshalJSON(data []byte) error {
	rec, err := DecodeInvoiceRecord(data)
	if err != nil {
		return err
	}
	*r = *rec
	return nil
}

// RecordFromMap construye el registro desde un mapa genérico (ej. JSONB leído de la base).
func RecordFromMap(m map[string]any) (*InvoiceRecord, error) {
	var errs []error
	section := func(key string) map[string]any {
		v, present := m[key]
		if !present || v == nil {
			errs = append(errs, &SectionError{Section: key, Reason: "ausente"})
			return nil
		}
		node, ok := v.(map[string]any)
		if !ok {
			errs = append(errs, &SectionError{Section: key, Reason: fmt.Sprintf("não é um objeto (%T)", v)})
			return nil
		}
		return node
	}
	ident := section(SectionIdentification)
	issuer := section(SectionIssuer)
	recipient := section(SectionRecipient)
	totals := section(SectionTotals)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	rec := &InvoiceRecord{
		Identification: &Identification{
			Number:          fiscal.LookupValue(ident, "numero_nf"),
			Series:          fiscal.LookupValue(ident, "serie"),
			IssueDate:       fiscal.LookupValue(ident, "data_emissao"),
			AccessKey:       fiscal.LookupValue(ident, "chave_acesso"),
			OperationType:   fiscal.LookupValue(ident, "tipo_operacao"),
			OperationNature: fiscal.LookupValue(ident, "natureza_operacao"),
		},
		Issuer: &Issuer{
			CNPJ:              fiscal.LookupValue(issuer, "cnpj"),
			LegalName:         fiscal.LookupValue(issuer, "razao_social"),
			TradeName:         fiscal.LookupValue(issuer, "nome_fantasia"),
			StateRegistration: fiscal.LookupValue(issuer, "inscricao_estadual"),
			State:             fiscal.LookupValue(issuer, "uf"),
			Address:           addressFromMap(fiscal.LookupMap(issuer, "endereco")),
		},
		Recipient: &Recipient{
			Document:          fiscal.LookupValue(recipient, "documento"),
			DocumentType:      fiscal.LookupValue(recipient, "tipo_documento"),
			Name:              fiscal.LookupValue(recipient, "nome"),
			StateRegistration: fiscal.LookupValue(recipient, "inscricao_estadual"),
			State:             fiscal.LookupValue(recipient, "uf"),
			Address:           addressFromMap(fiscal.LookupMap(recipient, "endereco")),
		},
		Totals: totalsFromMap(totals),
	}
	if items, ok := m["produtos"].([]any); ok {
		rec.Items = make([]LineItem, 0, len(items))
		for _, it := range items {
			node, _ := it.(map[string]any)
			rec.Items = append(rec.Items, itemFromMap(node))
		}
	}
	if info := fiscal.LookupMap(m, "informacoes_adicionais"); info != nil {
		rec.AdditionalInfo = &AdditionalInfo{
			Complementary: fiscal.LookupValue(info, "informacoes_complementares"),
			Fiscal:        fiscal.LookupValue(info, "informacoes_fisco"),
		}
	}
	return rec, nil
}

// CheckShape verifica las secciones obligatorias de un registro construido en código.
func (r *InvoiceRecord) CheckShape() error {
	if r == nil {
		return fmt.Errorf("%w: registro nulo", domain.ErrInvalidRecord)
	}
	var errs []error
	if r.Identification == nil {
		errs = append(errs, &SectionError{Section: SectionIdentification, Reason: "ausente"})
	}
	if r.Issuer == nil {
		errs = append(errs, &SectionError{Section: SectionIssuer, Reason: "ausente"})
	}
	if r.Recipient == nil {
		errs = append(errs, &SectionError{Section: SectionRecipient, Reason: "ausente"})
	}
	if r.Totals == nil {
		errs = append(errs, &SectionError{Section: SectionTotals, Reason: "ausente"})
	}
	return errors.Join(errs...)
}

func addressFromMap(m map[string]any) *Address {
	if m == nil {
		return nil
	}
	return &Address{
		Street:     fiscal.LookupValue(m, "logradouro"),
		Number:     fiscal.LookupValue(m, "numero"),
		Complement: fiscal.LookupValue(m, "complemento"),
		District:   fiscal.LookupValue(m, "bairro"),
		City:       fiscal.LookupValue(m, "cidade"),
		State:      fiscal.LookupValue(m, "uf"),
		ZipCode:    fiscal.LookupValue(m, "cep"),
	}
}

func itemFromMap(m map[string]any) LineItem {
	return LineItem{
		Code:        fiscal.LookupValue(m, "codigo"),
		Description: fiscal.LookupValue(m, "descricao"),
		NCM:         fiscal.LookupValue(m, "ncm"),
		CFOP:        fiscal.LookupValue(m, "cfop"),
		Unit:        fiscal.LookupValue(m, "unidade"),
		Quantity:    fiscal.LookupValue(m, "quantidade"),
		UnitPrice:   fiscal.LookupValue(m, "valor_unitario"),
		Total:       fiscal.LookupValue(m, "valor_total"),
		Taxes: ItemTaxes{
			ICMS:   fiscal.LookupValue(m, "impostos", "icms"),
			IPI:    fiscal.LookupValue(m, "impostos", "ipi"),
			PIS:    fiscal.LookupValue(m, "impostos", "pis"),
			COFINS: fiscal.LookupValue(m, "impostos", "cofins"),
		},
	}
}

func totalsFromMap(m map[string]any) *Totals {
	v := func(key string) fiscal.Value { return fiscal.LookupValue(m, key) }
	return &Totals{
		ProductsTotal: v("valor_produtos"),
		InvoiceTotal:  v("valor_total_nf"),
		ICMSBase:      v("base_calculo_icms"),
		ICMSAmount:    v("valor_icms"),
		ICMSRate:      v("aliquota_icms"),
		ICMSSTBase:    v("base_calculo_icms_st"),
		ICMSSTAmount:  v("valor_icms_st"),
		IPIBase:       v("base_calculo_ipi"),
		IPIAmount:     v("valor_ipi"),
		IPIRate:       v("aliquota_ipi"),
		PISBase:       v("base_calculo_pis"),
		PISAmount:     v("valor_pis"),
		PISRate:       v("aliquota_pis"),
		COFINSBase:    v("base_calculo_cofins"),
		COFINSAmount:  v("valor_cofins"),
		COFINSRate:    v("aliquota_cofins"),
		Freight:       v("valor_frete"),
		Insurance:     v("valor_seguro"),
		Discount:      v("valor_desconto"),
		Other:         v("valor_outros"),
	}
}

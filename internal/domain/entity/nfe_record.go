package entity

import (
	"github.com/jhoicas/nfe-fiscal/internal/domain/fiscal"
)

// InvoiceRecord representa una NF-e ya extraída (PDF/XML/imagen → estructura).
// Todo escalar es un fiscal.Value: ausente (null) es distinto de cero.
// Las secciones obligatorias son punteros para poder detectar su ausencia.
type InvoiceRecord struct {
	Identification *Identification `json:"identificacao"`
	Issuer         *Issuer         `json:"emitente"`
	Recipient      *Recipient      `json:"destinatario"`
	Items          []LineItem      `json:"produtos"`
	Totals         *Totals         `json:"totais"`
	AdditionalInfo *AdditionalInfo `json:"informacoes_adicionais,omitempty"`
}

// Identification datos de identificación del documento.
type Identification struct {
	Number          fiscal.Value `json:"numero_nf"`
	Series          fiscal.Value `json:"serie"`
	IssueDate       fiscal.Value `json:"data_emissao"`
	AccessKey       fiscal.Value `json:"chave_acesso"`
	OperationType   fiscal.Value `json:"tipo_operacao"`
	OperationNature fiscal.Value `json:"natureza_operacao"`
}

// Address dirección de emitente o destinatario.
type Address struct {
	Street     fiscal.Value `json:"logradouro"`
	Number     fiscal.Value `json:"numero"`
	Complement fiscal.Value `json:"complemento"`
	District   fiscal.Value `json:"bairro"`
	City       fiscal.Value `json:"cidade"`
	State      fiscal.Value `json:"uf"`
	ZipCode    fiscal.Value `json:"cep"`
}

// Issuer emitente de la nota.
type Issuer struct {
	CNPJ              fiscal.Value `json:"cnpj"`
	LegalName         fiscal.Value `json:"razao_social"`
	TradeName         fiscal.Value `json:"nome_fantasia"`
	StateRegistration fiscal.Value `json:"inscricao_estadual"`
	State             fiscal.Value `json:"uf"`
	Address           *Address     `json:"endereco,omitempty"`
}

// StateCode devuelve la UF del emitente: primero endereco.uf, luego uf.
func (i *Issuer) StateCode() fiscal.Value {
	if i == nil {
		return fiscal.Absent()
	}
	return stateCode(i.Address, i.State)
}

// Recipient destinatario (CNPJ o CPF).
type Recipient struct {
	Document          fiscal.Value `json:"documento"`
	DocumentType      fiscal.Value `json:"tipo_documento"`
	Name              fiscal.Value `json:"nome"`
	StateRegistration fiscal.Value `json:"inscricao_estadual"`
	State             fiscal.Value `json:"uf"`
	Address           *Address     `json:"endereco,omitempty"`
}

// StateCode devuelve la UF del destinatario con la misma precedencia que Issuer.
func (r *Recipient) StateCode() fiscal.Value {
	if r == nil {
		return fiscal.Absent()
	}
	return stateCode(r.Address, r.State)
}

func stateCode(addr *Address, top fiscal.Value) fiscal.Value {
	if addr != nil && !addr.State.IsBlank() {
		return addr.State
	}
	if !top.IsBlank() {
		return top
	}
	return fiscal.Absent()
}

// LineItem una línea de producto.
type LineItem struct {
	Code        fiscal.Value `json:"codigo"`
	Description fiscal.Value `json:"descricao"`
	NCM         fiscal.Value `json:"ncm"`
	CFOP        fiscal.Value `json:"cfop"`
	Unit        fiscal.Value `json:"unidade"`
	Quantity    fiscal.Value `json:"quantidade"`
	UnitPrice   fiscal.Value `json:"valor_unitario"`
	Total       fiscal.Value `json:"valor_total"`
	Taxes       ItemTaxes    `json:"impostos"`
}

// ItemTaxes impuestos de la línea; cada uno puede faltar de forma independiente.
type ItemTaxes struct {
	ICMS   fiscal.Value `json:"icms"`
	IPI    fiscal.Value `json:"ipi"`
	PIS    fiscal.Value `json:"pis"`
	COFINS fiscal.Value `json:"cofins"`
}

// Totals totalizadores de la nota.
type Totals struct {
	ProductsTotal fiscal.Value `json:"valor_produtos"`
	InvoiceTotal  fiscal.Value `json:"valor_total_nf"`

	ICMSBase   fiscal.Value `json:"base_calculo_icms"`
	ICMSAmount fiscal.Value `json:"valor_icms"`
	ICMSRate   fiscal.Value `json:"aliquota_icms"`

	ICMSSTBase   fiscal.Value `json:"base_calculo_icms_st"`
	ICMSSTAmount fiscal.Value `json:"valor_icms_st"`

	IPIBase   fiscal.Value `json:"base_calculo_ipi"`
	IPIAmount fiscal.Value `json:"valor_ipi"`
	IPIRate   fiscal.Value `json:"aliquota_ipi"`

	PISBase   fiscal.Value `json:"base_calculo_pis"`
	PISAmount fiscal.Value `json:"valor_pis"`
	PISRate   fiscal.Value `json:"aliquota_pis"`

	COFINSBase   fiscal.Value `json:"base_calculo_cofins"`
	COFINSAmount fiscal.Value `json:"valor_cofins"`
	COFINSRate   fiscal.Value `json:"aliquota_cofins"`

	Freight   fiscal.Value `json:"valor_frete"`
	Insurance fiscal.Value `json:"valor_seguro"`
	Discount  fiscal.Value `json:"valor_desconto"`
	Other     fiscal.Value `json:"valor_outros"`
}

// AdditionalInfo texto libre de la nota (opcional).
type AdditionalInfo struct {
	Complementary fiscal.Value `json:"informacoes_complementares"`
	Fiscal        fiscal.Value `json:"informacoes_fisco"`
}

package strategy

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"fiscaldoc/internal/domain"
)

// NFeNamespace is the XML namespace of Brazilian electronic product invoices.
const NFeNamespace = "http://www.portalfiscal.inf.br/nfe"

type nfeAddress struct {
	Street string `xml:"xLgr"`
	Number string `xml:"nro"`
	City   string `xml:"xMun"`
	State  string `xml:"UF"`
	CEP    string `xml:"CEP"`
}

type nfeParty struct {
	CNPJ string     `xml:"CNPJ"`
	CPF  string     `xml:"CPF"`
	Name string     `xml:"xNome"`
	IE   string     `xml:"IE"`
	Emit nfeAddress `xml:"enderEmit"`
	Dest nfeAddress `xml:"enderDest"`
}

type nfeTaxGroup struct {
	Rate string `xml:"pICMS"`
}

type nfeItem struct {
	Prod struct {
		Code        string `xml:"cProd"`
		Description string `xml:"xProd"`
		NCM         string `xml:"NCM"`
		CFOP        string `xml:"CFOP"`
		Unit        string `xml:"uCom"`
		Quantity    string `xml:"qCom"`
		UnitPrice   string `xml:"vUnCom"`
		Total       string `xml:"vProd"`
	} `xml:"prod"`
	ICMS struct {
		Groups []nfeTaxGroup `xml:",any"`
	} `xml:"imposto>ICMS"`
	IPIRate string `xml:"imposto>IPI>IPITrib>pIPI"`
}

type nfeInfo struct {
	ID  string `xml:"Id,attr"`
	Ide struct {
		Number   string `xml:"nNF"`
		Series   string `xml:"serie"`
		IssuedAt string `xml:"dhEmi"`
		Issued   string `xml:"dEmi"`
	} `xml:"ide"`
	Emit  nfeParty  `xml:"emit"`
	Dest  nfeParty  `xml:"dest"`
	Items []nfeItem `xml:"det"`
	Total struct {
		Products  string `xml:"vProd"`
		Freight   string `xml:"vFrete"`
		Insurance string `xml:"vSeg"`
		Discount  string `xml:"vDesc"`
		Other     string `xml:"vOutro"`
		ICMS      string `xml:"vICMS"`
		IPI       string `xml:"vIPI"`
		Invoice   string `xml:"vNF"`
	} `xml:"total>ICMSTot"`
}

// NFeXML parses NF-e XML files deterministically.
type NFeXML struct{}

// NewNFeXML creates the NF-e XML strategy.
func NewNFeXML() *NFeXML { return &NFeXML{} }

func (s *NFeXML) Name() string { return "nfe_xml" }

// Extract returns nil for files that are not XML or not in the NF-e namespace.
func (s *NFeXML) Extract(_ context.Context, blob domain.DocumentBlob) (*domain.TypedDocument, error) {
	if ft, _ := blob.FileType(); ft != domain.FileTypeXML {
		return nil, nil
	}
	info, err := findInfNFe(blob.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing nf-e xml %s", blob.Filename)
	}
	if info == nil {
		return nil, nil
	}
	inv := info.toProductInvoice()
	if inv.Number == "" {
		return nil, nil
	}
	return domain.NewProductInvoiceDocument(inv), nil
}

// findInfNFe streams the document until the infNFe element in the NF-e
// namespace, which may sit under nfeProc or NFe.
func findInfNFe(data []byte) (*nfeInfo, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "infNFe" {
			continue
		}
		if start.Name.Space != NFeNamespace {
			return nil, nil
		}
		var info nfeInfo
		if err := dec.DecodeElement(&info, &start); err != nil {
			return nil, err
		}
		return &info, nil
	}
}

func (n *nfeInfo) toProductInvoice() *domain.ProductInvoice {
	inv := &domain.ProductInvoice{
		Number:    strings.TrimSpace(n.Ide.Number),
		Series:    strings.TrimSpace(n.Ide.Series),
		AccessKey: strings.TrimPrefix(strings.TrimSpace(n.ID), "NFe"),
		Issuer:    n.Emit.toParty(n.Emit.Emit),
		Recipient: n.Dest.toParty(n.Dest.Dest),
		Items:     make([]domain.LineItem, 0, len(n.Items)),
		Totals: domain.ProductTotals{
			Products:     xmlMoney(n.Total.Products),
			Freight:      xmlMoney(n.Total.Freight),
			Insurance:    xmlMoney(n.Total.Insurance),
			Discount:     xmlMoney(n.Total.Discount),
			OtherCharges: xmlMoney(n.Total.Other),
			ICMS:         xmlMoney(n.Total.ICMS),
			IPI:          xmlMoney(n.Total.IPI),
			Total:        xmlMoney(n.Total.Invoice),
		},
	}

	issued := n.Ide.IssuedAt
	if issued == "" {
		issued = n.Ide.Issued
	}
	if len(issued) >= 10 {
		if d, err := domain.ParseDate(issued[:10]); err == nil {
			inv.IssueDate = d
		}
	}

	for _, it := range n.Items {
		item := domain.LineItem{
			Code:        strings.TrimSpace(it.Prod.Code),
			Description: strings.TrimSpace(it.Prod.Description),
			NCM:         strings.TrimSpace(it.Prod.NCM),
			CFOP:        strings.TrimSpace(it.Prod.CFOP),
			Unit:        strings.TrimSpace(it.Prod.Unit),
			Quantity:    xmlMoney(it.Prod.Quantity),
			UnitPrice:   xmlMoney(it.Prod.UnitPrice),
			Total:       xmlMoney(it.Prod.Total),
			IPIRate:     xmlMoney(it.IPIRate),
		}
		for _, g := range it.ICMS.Groups {
			if g.Rate != "" {
				item.ICMSRate = xmlMoney(g.Rate)
				break
			}
		}
		inv.Items = append(inv.Items, item)
	}
	return inv
}

func (p nfeParty) toParty(addr nfeAddress) domain.Party {
	taxID := p.CNPJ
	if taxID == "" {
		taxID = p.CPF
	}
	street := strings.TrimSpace(addr.Street)
	if addr.Number != "" && street != "" {
		street += ", " + strings.TrimSpace(addr.Number)
	}
	return domain.Party{
		Name:              strings.TrimSpace(p.Name),
		TaxID:             strings.TrimSpace(taxID),
		StateRegistration: strings.TrimSpace(p.IE),
		Address:           street,
		City:              strings.TrimSpace(addr.City),
		State:             strings.TrimSpace(addr.State),
		PostalCode:        strings.TrimSpace(addr.CEP),
	}
}

// xmlMoney parses an NF-e decimal (dot separator); blanks and garbage are absent.
func xmlMoney(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return domain.Money(d)
}

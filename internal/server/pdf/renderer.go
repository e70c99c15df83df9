// Package pdf renders a contract record into a fixed-layout legal document.
// The layout is deterministic for identical field values and signing date:
// same sections, same order, same substitutions.
package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/fleetops/contractd/internal/common"
	"github.com/fleetops/contractd/internal/server/models"
)

const (
	pageMargin     = 60
	titleFontSize  = 20
	bodyFontSize   = 12
	bodyLineHeight = 16
)

// Renderer produces the transport service contract PDF.
type Renderer struct {
	fontPath string
}

// NewRenderer returns a Renderer. fontPath may point at a TTF with CJK
// coverage; when empty the built-in core font is used, which renders the
// layout but not CJK glyphs.
func NewRenderer(fontPath string) *Renderer {
	return &Renderer{fontPath: fontPath}
}

// Render lays out the contract and returns the complete document bytes.
// Output is fully buffered; a failed render produces no partial output.
func (r *Renderer) Render(contract *models.Contract, signedAt time.Time) ([]byte, error) {
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetAutoPageBreak(true, pageMargin)

	family := "Helvetica"
	if r.fontPath != "" {
		family = "contract"
		doc.AddUTF8Font(family, "", r.fontPath)
	}

	doc.AddPage()

	doc.SetFont(family, "", titleFontSize)
	doc.CellFormat(0, titleFontSize+6, "运输服务合同", "", 1, "C", false, 0, "")
	doc.Ln(bodyLineHeight)

	doc.SetFont(family, "", bodyFontSize)
	for _, line := range bodyLines(contract, signedAt) {
		if line == "" {
			doc.Ln(bodyLineHeight)
			continue
		}
		doc.MultiCell(0, bodyLineHeight, line, "", "L", false)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorRender, err)
	}

	return buf.Bytes(), nil
}

// bodyLines builds the document text in layout order: numbering, parties,
// driver identification, the four-article boilerplate, notes, signatures.
func bodyLines(c *models.Contract, signedAt time.Time) []string {
	notes := c.ExtraNotes
	if notes == "" {
		notes = "无"
	}

	return []string{
		fmt.Sprintf("合同编号：%s", c.ID),
		fmt.Sprintf("签署日期：%s", signedAt.Format("2006年01月02日")),
		"",
		"甲方：__________________________",
		fmt.Sprintf("乙方（司机）：%s", c.DriverName),
		fmt.Sprintf("身份证号：%s", c.IDNumber),
		fmt.Sprintf("出生日期：%s", c.Birthday),
		fmt.Sprintf("常驻城市：%s", c.City),
		fmt.Sprintf("服务地址：%s", c.Address),
		"",
		"第一条  合同目的",
		"乙方确认遵守甲方的运营与安全规范，确保在提供运输服务期间遵守交通法规及公司制度。",
		"",
		"第二条  服务内容",
		"1. 乙方须按照甲方派工安排执行运输任务；",
		"2. 行程开始前需检查车辆状态并确保证件齐全；",
		"3. 任务完成后向甲方汇报行程及异常情况。",
		"",
		"第三条  费用结算与保密义务",
		"乙方须严格保守甲方及客户信息，不得向第三方披露。费用结算方式以双方另行约定为准。",
		"",
		"第四条  安全责任",
		"乙方需遵守安全驾驶原则，如遇突发事件应立即向甲方报告。因乙方违规导致的损失由乙方承担。",
		"",
		fmt.Sprintf("备注：%s", notes),
		"",
		"甲方代表（签名）：________________    日期：__________",
		"乙方（签名）：_______________________    日期：__________",
	}
}

package reasoning

import (
	"fmt"
	"math"

	"github.com/meridianhealth/intake/pkg/domain"
)

// BMI category labels.
const (
	BMIUnderweight = "underweight"
	BMINormal      = "normal"
	BMIOverweight  = "overweight"
	BMIObese1      = "obese_class_1"
	BMIObese2      = "obese_class_2"
	BMIObese3      = "obese_class_3"
)

// BMI computes weight(kg)/height(m)² rounded to one decimal.
func BMI(weightKg, heightM float64) float64 {
	if weightKg <= 0 || heightM <= 0 {
		return 0
	}
	return math.Round(weightKg/(heightM*heightM)*10) / 10
}

// BMICategory maps a BMI value onto its band.
func BMICategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return BMIUnderweight
	case bmi < 25:
		return BMINormal
	case bmi < 30:
		return BMIOverweight
	case bmi < 35:
		return BMIObese1
	case bmi < 40:
		return BMIObese2
	default:
		return BMIObese3
	}
}

// analyzeBMI derives BMI when both weight and height are known. Obesity
// raises a single moderate flag for any BMI >= 30 (not one per sub-class);
// underweight raises a low flag.
func (e *Engine) analyzeBMI(p *Profile, result *domain.ReasoningResult) {
	if p.Demographics.WeightKg <= 0 || p.Demographics.HeightM <= 0 {
		return
	}

	bmi := BMI(p.Demographics.WeightKg, p.Demographics.HeightM)
	category := BMICategory(bmi)

	result.Scores["bmi"] = bmi
	result.ExtraData["bmi"] = bmi
	result.ExtraData["bmiCategory"] = category
	addNote(result, fmt.Sprintf("BMI %.1f (%s)", bmi, category))

	switch {
	case bmi >= 30:
		addFlag(result, "bmi_obesity", "Obesity",
			fmt.Sprintf("BMI %.1f is in the %s range", bmi, category),
			domain.SeverityModerate)
		result.Recommendations.EducationTopics = append(result.Recommendations.EducationTopics,
			"weight_management", "nutrition_counseling")
	case bmi < 18.5:
		addFlag(result, "bmi_underweight", "Underweight",
			fmt.Sprintf("BMI %.1f is below the healthy range", bmi),
			domain.SeverityLow)
		result.Recommendations.FollowUpQuestions = append(result.Recommendations.FollowUpQuestions,
			"Have you lost weight without trying recently?")
	}
}

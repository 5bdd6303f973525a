package utils

import (
	"fmt"
	"math/rand"
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

// RomanizeChineseName 把中文名转换为首字母大写的拼音，例如 "王伟" -> "WangWei"
func RomanizeChineseName(chineseName string) string {
	var sb strings.Builder
	for _, py := range pinyin.LazyConvert(chineseName, nil) {
		if py == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(py[:1]) + py[1:])
	}
	return sb.String()
}

// Slugify 生成只包含小写字母、数字和连字符的名字，中文会先转换为拼音
func Slugify(name string) string {
	var parts []string
	var word strings.Builder

	flush := func() {
		if word.Len() > 0 {
			parts = append(parts, strings.ToLower(word.String()))
			word.Reset()
		}
	}

	for _, r := range name {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			parts = append(parts, pinyin.LazyConvert(string(r), nil)...)
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	if len(parts) == 0 {
		return "catalog"
	}
	return strings.Join(parts, "-")
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, pinyin := range pinyinArray {
		length := rand.Intn(len(pinyin)) + 1
		username += pinyin[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

func GenerateRandomUser(password string, emailDomainName string) (*domain.User, error) {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Email:        username + "@" + emailDomainName,
		Role:         domain.RoleViewer,
	}

	return user, nil
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	random_password := make([]rune, length)
	for i := range random_password {
		random_password[i] = letters[rand.Intn(len(letters))]
	}
	return string(random_password)
}

func GenerateRandomID(letterLength int, digitLength int) string {
	random_id := make([]rune, letterLength+digitLength)
	for i := range random_id {
		if i < letterLength {
			random_id[i] = letters[rand.Intn(26)]
		} else {
			random_id[i] = rune(digits[rand.Intn(len(digits))])
		}
	}
	return string(random_id)
}

// 使用 Fisher-Yates 洗牌算法来生成一个随机子集，至少包含一个元素
func GenerateRandomSubset(arr []string) []string {
	arrCopy := append([]string{}, arr...) // 复制数组，避免修改原数组

	for i := 0; i < len(arrCopy)-1; i++ {
		j := rand.Intn(len(arrCopy)-i) + i
		arrCopy[i], arrCopy[j] = arrCopy[j], arrCopy[i]
	}

	l := rand.Intn(len(arrCopy)) + 1
	return arrCopy[:l]
}

var buildings = []string{"Beach", "Frank", "Loft", "James", "Roman", "Slater"}

/**
 * 随机生成一个目录，用于压测和演示
 * 负责人使用随机中文名的拼音，保证名字是 ASCII
 * 每个活动的首选和备选负责人互不重叠
 */
func GenerateRandomCatalog(activityNum, roomNum, slotNum, facilitatorNum int) *domain.Catalog {
	c := &domain.Catalog{
		Name:        "随机目录" + GenerateRandomID(3, 3),
		Description: fmt.Sprintf("%d 个活动，%d 间教室，%d 个时间段，%d 位负责人", activityNum, roomNum, slotNum, facilitatorNum),
	}

	seen := make(map[string]bool)
	for len(c.Facilitators) < facilitatorNum {
		name := RomanizeChineseName(GenerateRandomChineseName())
		if seen[name] {
			continue
		}
		seen[name] = true
		c.Facilitators = append(c.Facilitators, domain.Facilitator{Name: name})
	}

	facilitatorNames := make([]string, len(c.Facilitators))
	for i, f := range c.Facilitators {
		facilitatorNames[i] = f.Name
	}

	for i := 0; i < activityNum; i++ {
		candidates := GenerateRandomSubset(facilitatorNames)
		split := rand.Intn(len(candidates)) + 1

		c.Activities = append(c.Activities, domain.Activity{
			Name:               fmt.Sprintf("ACT%03d", i+1),
			ExpectedEnrollment: rand.Intn(90) + 10,
			Preferred:          candidates[:split],
			Others:             candidates[split:],
			NeedsLab:           rand.Intn(3) == 0,
			NeedsProjector:     rand.Intn(3) == 0,
		})
	}

	for i := 0; i < roomNum; i++ {
		c.Rooms = append(c.Rooms, domain.Room{
			Name:         fmt.Sprintf("%s %d%02d", buildings[rand.Intn(len(buildings))], i/10+1, i%10),
			Capacity:     rand.Intn(100) + 15,
			HasLab:       rand.Intn(2) == 0,
			HasProjector: rand.Intn(2) == 0,
		})
	}

	for i := 0; i < slotNum; i++ {
		c.TimeSlots = append(c.TimeSlots, domain.TimeSlot(fmt.Sprintf("%02d:00", 8+i)))
	}

	return c
}

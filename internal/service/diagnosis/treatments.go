package diagnosis

const (
	treatmentBacterialSpot  = "ตัดแต่งใบที่เป็นโรคออก หลีกเลี่ยงการรดน้ำโดนใบ และพ่นสารคอปเปอร์ไฮดรอกไซด์ตามอัตราที่ระบุบนฉลาก"
	treatmentEarlyBlight    = "ถอนต้นที่เป็นโรคออกจากแปลงและทำลายทิ้ง พ่นสารป้องกันกำจัดเชื้อรา เช่น แมนโคเซบ ทุก 7-10 วัน"
	treatmentLateBlight     = "ลดการให้น้ำแบบพ่นฝอย เพิ่มการระบายอากาศในแปลง และพ่นสารเมทาแลกซิลเมื่อพบอาการครั้งแรก"
	treatmentLeafMold       = "ลดความชื้นในโรงเรือน เว้นระยะปลูกให้โปร่ง และพ่นสารคลอโรทาโลนิล"
	treatmentSeptoria       = "กำจัดเศษพืชรอบแปลง เด็ดใบล่างที่เป็นโรคออก และพ่นสารป้องกันกำจัดเชื้อรากลุ่มคอปเปอร์"
	treatmentSpiderMites    = "ฉีดน้ำล้างใต้ใบ ใช้สารสกัดสะเดา หรือสารกำจัดไรศัตรูพืช เช่น อะบาเมกติน"
	treatmentTargetSpot     = "เก็บใบล่างที่เป็นโรคออก ปรับปรุงการระบายอากาศ และพ่นสารอะซอกซีสโตรบิน"
	treatmentYellowLeafCurl = "ถอนต้นที่ติดเชื้อทิ้ง ควบคุมแมลงหวี่ขาวซึ่งเป็นพาหะ และเลือกใช้พันธุ์ต้านทาน"
	treatmentMosaic         = "ถอนต้นที่ติดเชื้อทิ้ง ล้างมือและฆ่าเชื้ออุปกรณ์ก่อนสัมผัสต้นอื่น"
	treatmentHealthy        = "ไม่ต้องทำการรักษา"
)
